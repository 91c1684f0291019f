// Package dashboard consolida a situação fiscal da carteira de um escritório.
package dashboard

import (
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/caixapostal"
	"github.com/KromaEnergia/painel-fiscal/internal/cnd"
	"github.com/KromaEnergia/painel-fiscal/internal/declaracao"
	"github.com/KromaEnergia/painel-fiscal/internal/fgts"
	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"github.com/KromaEnergia/painel-fiscal/internal/parcelamento"
	"github.com/KromaEnergia/painel-fiscal/internal/simples"
	"github.com/KromaEnergia/painel-fiscal/internal/tarefa"
)

// Dados é o que o dashboard lê do banco. Guias, declarações e tarefas chegam só as abertas.
type Dados struct {
	Clientes         int64
	Certidoes        []cnd.Certidao
	Guias            []fgts.GuiaFGTS
	Declaracoes      []declaracao.Declaracao
	Parcelamentos    []parcelamento.Parcelamento
	AlertasSimples   []simples.Apuracao
	Mensagens        caixapostal.Contagem
	Tarefas          []tarefa.Tarefa
	ConsultasAbertas int64
}

type Pendencias struct {
	Atrasadas int `json:"atrasadas"`
	Pendentes int `json:"pendentes"`
}

type ResumoCertidoes struct {
	Total     int                     `json:"total"`
	PorStatus map[fiscal.Validade]int `json:"porStatus"`
	PorOrgao  map[fiscal.Orgao]int    `json:"porOrgao"`
	Positivas int                     `json:"positivas"`
}

type ResumoSimples struct {
	Atencao  int `json:"atencao"`
	Critico  int `json:"critico"`
	Excedido int `json:"excedido"`
}

type ResumoTarefas struct {
	Abertas   int `json:"abertas"`
	Atrasadas int `json:"atrasadas"`
}

type Resumo struct {
	GeradoEm               time.Time            `json:"geradoEm"`
	Clientes               int64                `json:"clientes"`
	Certidoes              ResumoCertidoes      `json:"certidoes"`
	FGTS                   Pendencias           `json:"fgts"`
	Declaracoes            Pendencias           `json:"declaracoes"`
	ParcelamentosAtivos    int                  `json:"parcelamentosAtivos"`
	ParcelamentosAtrasados int                  `json:"parcelamentosAtrasados"`
	Simples                ResumoSimples        `json:"simples"`
	Mensagens              caixapostal.Contagem `json:"mensagens"`
	Tarefas                ResumoTarefas        `json:"tarefas"`
	ConsultasAbertas       int64                `json:"consultasAbertas"`
}

func contarPrazo(p fiscal.Prazo, out *Pendencias) {
	switch p {
	case fiscal.PrazoAtrasado:
		out.Atrasadas++
	case fiscal.PrazoPendente:
		out.Pendentes++
	}
}

// Montar deriva os status com o mesmo relógio para todos os itens e conta por categoria.
func Montar(d Dados, agora time.Time, janela int) Resumo {
	r := Resumo{
		GeradoEm:         agora,
		Clientes:         d.Clientes,
		Mensagens:        d.Mensagens,
		ConsultasAbertas: d.ConsultasAbertas,
		Certidoes: ResumoCertidoes{
			Total:     len(d.Certidoes),
			PorStatus: map[fiscal.Validade]int{},
			PorOrgao:  map[fiscal.Orgao]int{},
		},
	}
	for _, c := range d.Certidoes {
		c.Derivar(agora, janela)
		r.Certidoes.PorStatus[c.Status]++
		r.Certidoes.PorOrgao[c.Orgao]++
		if c.Situacao == fiscal.SituacaoPositiva {
			r.Certidoes.Positivas++
		}
	}
	for _, g := range d.Guias {
		g.Derivar(agora)
		contarPrazo(g.Status, &r.FGTS)
	}
	for _, dc := range d.Declaracoes {
		dc.Derivar(agora)
		contarPrazo(dc.Status, &r.Declaracoes)
	}
	for _, p := range d.Parcelamentos {
		if p.Situacao != parcelamento.SituacaoAtivo {
			continue
		}
		p.Derivar(agora)
		r.ParcelamentosAtivos++
		if p.Status == parcelamento.StatusAtrasado {
			r.ParcelamentosAtrasados++
		}
	}
	for _, a := range d.AlertasSimples {
		switch a.Faixa {
		case fiscal.FaixaAtencao:
			r.Simples.Atencao++
		case fiscal.FaixaCritico:
			r.Simples.Critico++
		case fiscal.FaixaExcedido:
			r.Simples.Excedido++
		}
	}
	for _, t := range d.Tarefas {
		if t.Status == tarefa.StatusConcluida {
			continue
		}
		t.Derivar(agora)
		r.Tarefas.Abertas++
		if t.Atrasada {
			r.Tarefas.Atrasadas++
		}
	}
	return r
}
