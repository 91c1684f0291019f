// Package consulta implementa as consultas assíncronas de certidões: a tabela de
// jobs consultada pelo front-end, a fila que acorda os workers e o agendador.
package consulta

import (
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPendente    Status = "pendente"
	StatusProcessando Status = "processando"
	StatusConcluida   Status = "concluida"
	StatusErro        Status = "erro"
)

func (s Status) Valido() bool {
	switch s {
	case StatusPendente, StatusProcessando, StatusConcluida, StatusErro:
		return true
	}
	return false
}

// Consulta é um job de emissão de certidão. A linha no banco é a fonte da verdade;
// a mensagem na fila só avisa que existe trabalho.
type Consulta struct {
	ID            string          `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time       `json:"criadoEm"`
	UpdatedAt     time.Time       `json:"atualizadoEm"`
	EscritorioID  uint            `gorm:"not null;index" json:"escritorioId"`
	ClienteID     uint            `gorm:"not null;index:idx_consulta_cliente_orgao" json:"clienteId"`
	Orgao         fiscal.Orgao    `gorm:"size:20;not null;index:idx_consulta_cliente_orgao" json:"orgao"`
	Status        Status          `gorm:"size:20;not null;index;default:'pendente'" json:"status"`
	Tentativas    int             `gorm:"not null;default:0" json:"tentativas"`
	Erro          string          `gorm:"type:text" json:"erro,omitempty"`
	CodigoRetorno int             `json:"codigoRetorno,omitempty"`
	Situacao      fiscal.Situacao `gorm:"size:30" json:"situacao,omitempty"`
	CertidaoID    *uint           `json:"certidaoId,omitempty"`
	CriadoPor     uint            `json:"criadoPor"` // 0 = agendador
	IniciadaEm    *time.Time      `json:"iniciadaEm,omitempty"`
	FinalizadaEm  *time.Time      `json:"finalizadaEm,omitempty"`
}

func (c *Consulta) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Aberta indica job ainda não finalizado.
func (c *Consulta) Aberta() bool {
	return c.Status == StatusPendente || c.Status == StatusProcessando
}
