// Package cnd guarda a certidão vigente de cada cliente por órgão emissor.
package cnd

import (
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"gorm.io/gorm"
)

const (
	FonteManual      = "manual"
	FonteInfoSimples = "infosimples"
)

// Certidao é a certidão atual do cliente para um órgão. Uma nova consulta substitui a anterior.
type Certidao struct {
	gorm.Model
	EscritorioID   uint            `gorm:"not null;index" json:"escritorioId"`
	ClienteID      uint            `gorm:"not null;uniqueIndex:idx_certidao_cliente_orgao" json:"clienteId"`
	Orgao          fiscal.Orgao    `gorm:"size:20;not null;uniqueIndex:idx_certidao_cliente_orgao" json:"orgao"`
	Situacao       fiscal.Situacao `gorm:"size:30;not null" json:"situacao"`
	Codigo         string          `gorm:"size:120" json:"codigo"`
	DataEmissao    *time.Time      `json:"dataEmissao"`
	DataValidade   *time.Time      `gorm:"index" json:"dataValidade"`
	URLComprovante string          `gorm:"size:500" json:"urlComprovante"`
	Observacao     string          `gorm:"type:text" json:"observacao"`
	UltimaConsulta *time.Time      `json:"ultimaConsulta"`
	Fonte          string          `gorm:"size:20;not null;default:'manual'" json:"fonte"`

	Status         fiscal.Validade `gorm:"-" json:"status"`
	DiasParaVencer *int            `gorm:"-" json:"diasParaVencer"`
}

// Derivar preenche Status e DiasParaVencer a partir da validade.
func (c *Certidao) Derivar(agora time.Time, janela int) {
	c.DiasParaVencer = nil
	if c.DataValidade == nil {
		c.Status = fiscal.SemValidade
		return
	}
	c.Status = fiscal.StatusValidade(*c.DataValidade, agora, janela)
	d := fiscal.DiasParaVencer(*c.DataValidade, agora)
	c.DiasParaVencer = &d
}

// Vencendo indica certidão vencida ou dentro da janela de vencimento.
func (c *Certidao) Vencendo() bool {
	return c.Status == fiscal.AVencer || c.Status == fiscal.Vencida
}
