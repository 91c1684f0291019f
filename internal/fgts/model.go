// Package fgts acompanha as guias mensais de FGTS dos clientes.
package fgts

import (
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"gorm.io/gorm"
)

// DiaVencimento padrão da guia no mês seguinte à competência.
const DiaVencimento = 20

type GuiaFGTS struct {
	gorm.Model
	EscritorioID uint       `gorm:"not null;index" json:"escritorioId"`
	ClienteID    uint       `gorm:"not null;uniqueIndex:idx_guia_cliente_competencia" json:"clienteId"`
	Competencia  string     `gorm:"size:7;not null;uniqueIndex:idx_guia_cliente_competencia" json:"competencia"`
	Valor        float64    `gorm:"not null;default:0" json:"valor"`
	Vencimento   time.Time  `gorm:"not null;index" json:"vencimento"`
	PagoEm       *time.Time `json:"pagoEm"`
	Observacao   string     `gorm:"type:text" json:"observacao"`

	Status fiscal.Prazo `gorm:"-" json:"status"`
}

func (GuiaFGTS) TableName() string { return "guias_fgts" }

func (g *GuiaFGTS) Derivar(agora time.Time) {
	g.Status = fiscal.StatusPrazo(g.Vencimento, g.PagoEm, agora)
}

// VencimentoPadrao é o dia 20 do mês seguinte, antecipado para o dia útil anterior.
func VencimentoPadrao(competencia time.Time) time.Time {
	y, m, _ := competencia.Date()
	v := time.Date(y, m+1, DiaVencimento, 0, 0, 0, 0, competencia.Location())
	return fiscal.DiaUtilAnterior(v)
}
