// Package fiscal reúne os enums compartilhados e as regras de derivação de
// status usadas por certidões, guias, declarações, parcelamentos, Simples e tarefas.
package fiscal

import (
	"math"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/utils"
)

// Orgao emissor de certidão.
type Orgao string

const (
	OrgaoFederal     Orgao = "federal"
	OrgaoEstadual    Orgao = "estadual"
	OrgaoFGTS        Orgao = "fgts"
	OrgaoMunicipal   Orgao = "municipal"
	OrgaoTrabalhista Orgao = "trabalhista"
)

// Orgaos lista os órgãos na ordem em que aparecem no painel.
var Orgaos = []Orgao{OrgaoFederal, OrgaoEstadual, OrgaoFGTS, OrgaoMunicipal, OrgaoTrabalhista}

func (o Orgao) Valido() bool {
	for _, v := range Orgaos {
		if v == o {
			return true
		}
	}
	return false
}

// Situacao da certidão conforme retornada pelo órgão.
type Situacao string

const (
	SituacaoNegativa               Situacao = "negativa"
	SituacaoPositivaEfeitoNegativa Situacao = "positiva_efeito_negativa"
	SituacaoPositiva               Situacao = "positiva"
	SituacaoIndisponivel           Situacao = "indisponivel"
	SituacaoErro                   Situacao = "erro"
)

// Regular indica se a certidão comprova regularidade fiscal.
func (s Situacao) Regular() bool {
	return s == SituacaoNegativa || s == SituacaoPositivaEfeitoNegativa
}

func (s Situacao) Valida() bool {
	switch s {
	case SituacaoNegativa, SituacaoPositivaEfeitoNegativa, SituacaoPositiva, SituacaoIndisponivel, SituacaoErro:
		return true
	}
	return false
}

// Validade é o status derivado da data de validade de uma certidão.
type Validade string

const (
	Valida      Validade = "valida"
	AVencer     Validade = "a_vencer"
	Vencida     Validade = "vencida"
	SemValidade Validade = "sem_validade"
)

// JanelaPadrao em dias para considerar uma certidão "a vencer".
const JanelaPadrao = 15

func inicioDoDia(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DiasParaVencer conta dias de calendário em utils.Fuso entre agora e a data;
// negativo se já passou. O fuso do servidor não interfere.
func DiasParaVencer(data, agora time.Time) int {
	d := inicioDoDia(data.In(utils.Fuso))
	a := inicioDoDia(agora.In(utils.Fuso))
	return int(math.Round(d.Sub(a).Hours() / 24))
}

// StatusValidade classifica a validade. A certidão vale até o fim do dia de validade.
func StatusValidade(validade, agora time.Time, janela int) Validade {
	if validade.IsZero() {
		return SemValidade
	}
	if janela < 0 {
		janela = JanelaPadrao
	}
	dias := DiasParaVencer(validade, agora)
	switch {
	case dias < 0:
		return Vencida
	case dias <= janela:
		return AVencer
	default:
		return Valida
	}
}

// Prazo é o status derivado de obrigações com data limite (guias, declarações, tarefas).
type Prazo string

const (
	PrazoPendente  Prazo = "pendente"
	PrazoAtrasado  Prazo = "atrasado"
	PrazoConcluido Prazo = "concluido"
)

func StatusPrazo(prazo time.Time, concluidoEm *time.Time, agora time.Time) Prazo {
	if concluidoEm != nil && !concluidoEm.IsZero() {
		return PrazoConcluido
	}
	if !prazo.IsZero() && DiasParaVencer(prazo, agora) < 0 {
		return PrazoAtrasado
	}
	return PrazoPendente
}

// Faixa de consumo do limite/sublimite do Simples Nacional.
type Faixa string

const (
	FaixaNormal   Faixa = "normal"
	FaixaAtencao  Faixa = "atencao"
	FaixaCritico  Faixa = "critico"
	FaixaExcedido Faixa = "excedido"
)

const (
	LimiteAtencao = 70.0
	LimiteCritico = 90.0
)

func FaixaSublimite(percentual float64) Faixa {
	switch {
	case percentual >= 100:
		return FaixaExcedido
	case percentual >= LimiteCritico:
		return FaixaCritico
	case percentual >= LimiteAtencao:
		return FaixaAtencao
	default:
		return FaixaNormal
	}
}

// Percentual retorna valor/limite em pontos percentuais com duas casas.
func Percentual(valor, limite float64) float64 {
	if limite <= 0 {
		return 0
	}
	return math.Round(valor/limite*10000) / 100
}
