package db

import (
	"github.com/KromaEnergia/painel-fiscal/internal/config"

	"gorm.io/gorm"
)

func GetDB(cfg config.Config) (*gorm.DB, error) {
	return ConnectDataBase(cfg.DBPort, cfg.DBHost, cfg.DBName, cfg.DBUsername, cfg.DBPassword, cfg.DBSSLDisable)
}
