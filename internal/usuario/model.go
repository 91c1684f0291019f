package usuario

import (
	"errors"

	"gorm.io/gorm"
)

var ErrEmailDuplicado = errors.New("e-mail já cadastrado")

const (
	PapelAdmin       = "admin"
	PapelColaborador = "colaborador"
)

// Usuario pertence a um escritório contábil.
type Usuario struct {
	gorm.Model
	EscritorioID uint   `gorm:"not null;index" json:"escritorioId"`
	Nome         string `gorm:"size:255;not null" json:"nome"`
	Email        string `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Senha        string `json:"-"`
	Papel        string `gorm:"size:20;not null;default:'colaborador'" json:"papel"`
	Ativo        bool   `gorm:"not null;default:true" json:"ativo"`
}

func (u Usuario) IsAdmin() bool { return u.Papel == PapelAdmin }
