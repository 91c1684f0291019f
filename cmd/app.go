package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/auth"
	"github.com/KromaEnergia/painel-fiscal/internal/caixapostal"
	"github.com/KromaEnergia/painel-fiscal/internal/cliente"
	"github.com/KromaEnergia/painel-fiscal/internal/cnd"
	"github.com/KromaEnergia/painel-fiscal/internal/consulta"
	"github.com/KromaEnergia/painel-fiscal/internal/declaracao"
	"github.com/KromaEnergia/painel-fiscal/internal/escritorio"
	"github.com/KromaEnergia/painel-fiscal/internal/fgts"
	"github.com/KromaEnergia/painel-fiscal/internal/infosimples"
	"github.com/KromaEnergia/painel-fiscal/internal/logger"
	"github.com/KromaEnergia/painel-fiscal/internal/notificacao"
	"github.com/KromaEnergia/painel-fiscal/internal/parcelamento"
	"github.com/KromaEnergia/painel-fiscal/internal/simples"
	"github.com/KromaEnergia/painel-fiscal/internal/tarefa"
	"github.com/KromaEnergia/painel-fiscal/internal/usuario"
	"github.com/KromaEnergia/painel-fiscal/internal/utils/db"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// conectar abre o Postgres e roda o AutoMigrate de todos os modelos.
func conectar() (*gorm.DB, error) {
	conn, err := db.GetDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("erro ao conectar no banco: %w", err)
	}
	if err := conn.AutoMigrate(
		&escritorio.Escritorio{},
		&usuario.Usuario{},
		&auth.RefreshToken{},
		&cliente.Cliente{},
		&cnd.Certidao{},
		&consulta.Consulta{},
		&fgts.GuiaFGTS{},
		&declaracao.Declaracao{},
		&parcelamento.Parcelamento{},
		&parcelamento.Parcela{},
		&simples.FaturamentoMensal{},
		&caixapostal.Mensagem{},
		&tarefa.Tarefa{},
		&tarefa.ComentarioTarefa{},
	); err != nil {
		return nil, fmt.Errorf("erro no AutoMigrate: %w", err)
	}
	return conn, nil
}

// executar sobe a API e/ou os workers e espera SIGINT/SIGTERM.
func executar(comAPI, comWorkers bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := conectar()
	if err != nil {
		return err
	}
	if comAPI {
		if err := auth.Configurar(cfg.AuthRSAPrivatePath, cfg.AuthKID, cfg.AuthIssuer, cfg.AuthAudience); err != nil {
			return fmt.Errorf("chaves de autenticação: %w", err)
		}
	}

	fila, err := consulta.NovaFila(cfg.RedisURL, logger.NewWatermillAdapter(log))
	if err != nil {
		return fmt.Errorf("fila de consultas: %w", err)
	}
	defer fila.Close()

	g, ctx := errgroup.WithContext(ctx)

	if comWorkers {
		iniciarWorkers(ctx, g, conn, fila)
	}

	if comAPI {
		srv := &http.Server{
			Addr:              cfg.Addr(),
			Handler:           novoRouter(ctx, conn, fila),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			log.Info("servidor HTTP iniciado", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			log.Info("encerrando servidor HTTP")
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("encerrado")
	return nil
}

func iniciarWorkers(ctx context.Context, g *errgroup.Group, conn *gorm.DB, fila *consulta.Fila) {
	if cfg.InfoSimplesToken == "" {
		log.Warn("INFOSIMPLES_TOKEN não definido: as consultas terminarão em erro")
	}
	client := infosimples.New(cfg.InfoSimplesURL, cfg.InfoSimplesToken, cfg.InfoSimplesTimeout,
		infosimples.WithRPS(cfg.InfoSimplesRPS))
	notificador := notificacao.New(cfg.WebhookURL, log)

	proc := &consulta.Processador{
		DB:                conn,
		Consultas:         consulta.NewRepository(),
		Certidoes:         cnd.NewRepository(),
		Clientes:          cliente.NewRepository(),
		Consultor:         client,
		Notificador:       notificador,
		Fila:              fila,
		Logger:            log.Named("consulta"),
		Tentativas:        cfg.ConsultaTentativas,
		AtrasoRetentativa: 30 * time.Second,
		Janela:            cfg.JanelaVencimento,
	}
	pool := &consulta.Pool{
		Subscriber:  fila.Subscriber,
		Processador: proc,
		Workers:     cfg.ConsultaWorkers,
		Logger:      log.Named("worker"),
	}
	agendador := &consulta.Agendador{
		DB:        conn,
		Consultas: consulta.NewRepository(),
		Certidoes: cnd.NewRepository(),
		Fila:      fila,
		Logger:    log.Named("agendador"),
		Intervalo: cfg.AgendadorIntervalo,
		Janela:    cfg.JanelaVencimento,
	}

	g.Go(func() error { return pool.Executar(ctx) })
	g.Go(func() error { return agendador.Executar(ctx) })
	log.Info("workers de consulta iniciados",
		zap.Int("workers", cfg.ConsultaWorkers),
		zap.Bool("redis", cfg.RedisURL != ""),
		zap.Duration("intervalo_agendador", cfg.AgendadorIntervalo))
}
