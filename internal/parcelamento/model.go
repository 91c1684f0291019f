// Package parcelamento acompanha os parcelamentos de débitos dos clientes e suas parcelas.
package parcelamento

import (
	"math"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"gorm.io/gorm"
)

const (
	SituacaoAtivo      = "ativo"
	SituacaoRescindido = "rescindido"
	SituacaoQuitado    = "quitado"
)

var situacoes = map[string]bool{SituacaoAtivo: true, SituacaoRescindido: true, SituacaoQuitado: true}

const (
	ParcelaPendente  = "Pendente"
	ParcelaPaga      = "Pago"
	ParcelaCancelada = "Cancelada"
)

var statusParcela = map[string]bool{ParcelaPendente: true, ParcelaPaga: true, ParcelaCancelada: true}

const (
	StatusEmDia    = "em_dia"
	StatusAtrasado = "atrasado"
	StatusQuitado  = "quitado"
)

type Parcelamento struct {
	gorm.Model
	EscritorioID uint         `gorm:"not null;index" json:"escritorioId"`
	ClienteID    uint         `gorm:"not null;index" json:"clienteId"`
	Orgao        fiscal.Orgao `gorm:"size:20;not null" json:"orgao"`
	Numero       string       `gorm:"size:60" json:"numero"`
	Modalidade   string       `gorm:"size:120" json:"modalidade"`
	ValorTotal   float64      `gorm:"not null;default:0" json:"valorTotal"`
	QtdParcelas  int          `gorm:"not null" json:"qtdParcelas"`
	DataInicio   time.Time    `gorm:"not null" json:"dataInicio"`
	Situacao     string       `gorm:"size:20;not null;default:'ativo';index" json:"situacao"`
	Parcelas     []Parcela    `gorm:"foreignKey:ParcelamentoID;constraint:OnDelete:CASCADE" json:"parcelas"`

	ParcelasPagas     int     `gorm:"-" json:"parcelasPagas"`
	ParcelasAtrasadas int     `gorm:"-" json:"parcelasAtrasadas"`
	SaldoDevedor      float64 `gorm:"-" json:"saldoDevedor"`
	Status            string  `gorm:"-" json:"status"`
}

// Parcela de um parcelamento.
type Parcela struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ParcelamentoID uint       `gorm:"not null;index" json:"parcelamentoId"`
	Numero         int        `gorm:"not null" json:"numero"`
	Valor          float64    `gorm:"not null;default:0" json:"valor"`
	Vencimento     time.Time  `gorm:"not null" json:"vencimento"`
	Status         string     `gorm:"size:20;not null;default:'Pendente';index" json:"status"`
	DataPagamento  *time.Time `json:"dataPagamento"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (Parcela) TableName() string { return "parcelas_parcelamento" }

func (p Parcela) Atrasada(agora time.Time) bool {
	return p.Status == ParcelaPendente && fiscal.DiasParaVencer(p.Vencimento, agora) < 0
}

// Derivar calcula pagas, atrasadas, saldo e status a partir das parcelas carregadas.
func (p *Parcelamento) Derivar(agora time.Time) {
	p.ParcelasPagas, p.ParcelasAtrasadas = 0, 0
	var saldo int64
	abertas := 0
	for _, pc := range p.Parcelas {
		switch pc.Status {
		case ParcelaPaga:
			p.ParcelasPagas++
		case ParcelaPendente:
			abertas++
			saldo += centavos(pc.Valor)
			if pc.Atrasada(agora) {
				p.ParcelasAtrasadas++
			}
		}
	}
	p.SaldoDevedor = float64(saldo) / 100
	switch {
	case p.Situacao == SituacaoQuitado || Quitavel(p.ParcelasPagas, abertas):
		p.Status = StatusQuitado
	case p.ParcelasAtrasadas > 0:
		p.Status = StatusAtrasado
	default:
		p.Status = StatusEmDia
	}
}

// Quitavel exige ao menos uma parcela paga e nenhuma pendente; parcelas
// canceladas sozinhas não quitam o parcelamento.
func Quitavel(pagas, pendentes int) bool {
	return pagas > 0 && pendentes == 0
}

func centavos(v float64) int64 { return int64(math.Round(v * 100)) }

// somarMeses mantém o dia do vencimento, limitado ao último dia do mês.
func somarMeses(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	primeiro := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	ultimo := primeiro.AddDate(0, 1, -1).Day()
	if d > ultimo {
		d = ultimo
	}
	return time.Date(primeiro.Year(), primeiro.Month(), d, 0, 0, 0, 0, t.Location())
}

// GerarParcelas divide o total em qtd parcelas mensais a partir do primeiro
// vencimento. Os centavos que sobram da divisão vão para a última parcela.
func GerarParcelas(total float64, qtd int, primeiroVencimento time.Time) []Parcela {
	if qtd < 1 {
		return nil
	}
	totalC := centavos(total)
	base := totalC / int64(qtd)
	out := make([]Parcela, qtd)
	for i := 0; i < qtd; i++ {
		v := base
		if i == qtd-1 {
			v = totalC - base*int64(qtd-1)
		}
		out[i] = Parcela{
			Numero:     i + 1,
			Valor:      float64(v) / 100,
			Vencimento: somarMeses(primeiroVencimento, i),
			Status:     ParcelaPendente,
		}
	}
	return out
}
