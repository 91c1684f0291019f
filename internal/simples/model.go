// Package simples acompanha o faturamento dos clientes do Simples Nacional
// e o consumo do limite anual e do sublimite estadual.
package simples

import (
	"math"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"gorm.io/gorm"
)

const (
	LimiteAnual       = 4_800_000.00
	SublimiteEstadual = 3_600_000.00
	// MesesRBT12 é o período de apuração da receita bruta acumulada.
	MesesRBT12 = 12
)

type FaturamentoMensal struct {
	gorm.Model
	EscritorioID uint    `gorm:"not null;index" json:"escritorioId"`
	ClienteID    uint    `gorm:"not null;uniqueIndex:idx_faturamento_cliente_competencia" json:"clienteId"`
	Competencia  string  `gorm:"size:7;not null;uniqueIndex:idx_faturamento_cliente_competencia" json:"competencia"`
	Valor        float64 `gorm:"not null;default:0" json:"valor"`
}

func (FaturamentoMensal) TableName() string { return "faturamentos_simples" }

// Apuracao é o retrato do RBT12 de um cliente para um mês de referência.
type Apuracao struct {
	ClienteID           uint                `json:"clienteId"`
	RazaoSocial         string              `json:"razaoSocial,omitempty"`
	Referencia          string              `json:"referencia"`
	Inicio              string              `json:"inicio"`
	Fim                 string              `json:"fim"`
	RBT12               float64             `json:"rbt12"`
	LimiteAnual         float64             `json:"limiteAnual"`
	Sublimite           float64             `json:"sublimite"`
	PercentualLimite    float64             `json:"percentualLimite"`
	PercentualSublimite float64             `json:"percentualSublimite"`
	Faixa               fiscal.Faixa        `json:"faixa"`
	MesesInformados     int                 `json:"mesesInformados"`
	Faturamentos        []FaturamentoMensal `json:"faturamentos,omitempty"`
}

// Periodo devolve a primeira e a última competência do RBT12: os 12 meses
// anteriores ao mês de referência.
func Periodo(referencia time.Time) (inicio, fim string) {
	y, m, _ := referencia.Date()
	ref := time.Date(y, m, 1, 0, 0, 0, 0, referencia.Location())
	return fiscal.Competencia(ref.AddDate(0, -MesesRBT12, 0)), fiscal.Competencia(ref.AddDate(0, -1, 0))
}

// Apurar soma os faturamentos do cliente dentro do período de referência.
// Competências fora do período são ignoradas.
func Apurar(clienteID uint, fats []FaturamentoMensal, referencia time.Time) Apuracao {
	inicio, fim := Periodo(referencia)
	a := Apuracao{
		ClienteID:   clienteID,
		Referencia:  fiscal.Competencia(referencia),
		Inicio:      inicio,
		Fim:         fim,
		LimiteAnual: LimiteAnual,
		Sublimite:   SublimiteEstadual,
	}
	var total int64
	for _, f := range fats {
		if f.ClienteID != clienteID || f.Competencia < inicio || f.Competencia > fim {
			continue
		}
		total += int64(math.Round(f.Valor * 100))
		a.MesesInformados++
		a.Faturamentos = append(a.Faturamentos, f)
	}
	a.RBT12 = float64(total) / 100
	a.PercentualLimite = fiscal.Percentual(a.RBT12, LimiteAnual)
	a.PercentualSublimite = fiscal.Percentual(a.RBT12, SublimiteEstadual)
	// o sublimite é menor que o limite, então define a faixa
	a.Faixa = fiscal.FaixaSublimite(a.PercentualSublimite)
	return a
}
