package main

import (
	"fmt"
	"os"

	"github.com/KromaEnergia/painel-fiscal/internal/config"
	"github.com/KromaEnergia/painel-fiscal/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "painel-fiscal",
	Short: "API e workers do painel fiscal dos escritórios contábeis",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		var err error
		log, err = logger.New(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Sobe a API HTTP, os workers de consulta e o agendador",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executar(true, true)
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Roda só os workers de consulta e o agendador (requer REDIS_URL)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.RedisURL == "" {
			return fmt.Errorf("o modo worker precisa de REDIS_URL para receber as consultas da API")
		}
		return executar(false, true)
	},
}

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Sobe só a API HTTP; as consultas são processadas por 'worker' (requer REDIS_URL)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.RedisURL == "" {
			return fmt.Errorf("o modo api precisa de REDIS_URL para entregar as consultas aos workers")
		}
		return executar(true, false)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Cria ou atualiza as tabelas e sai",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := conectar()
		if err != nil {
			return err
		}
		log.Info("migração concluída")
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
		return nil
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, workerCmd, apiCmd, migrateCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
