package consulta

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"github.com/KromaEnergia/painel-fiscal/internal/infosimples"
	"github.com/KromaEnergia/painel-fiscal/internal/notificacao"
	"github.com/KromaEnergia/painel-fiscal/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var agoraTeste = time.Date(2025, 3, 10, 9, 0, 0, 0, utils.Fuso)

type cenario struct {
	consultas   *fakeConsultas
	certidoes   *fakeCertidoes
	consultor   *fakeConsultor
	notificador *fakeNotificador
	fila        *fakeFila
	p           *Processador
}

func novoCenario() *cenario {
	c := &cenario{
		consultas:   novoFakeConsultas(),
		certidoes:   &fakeCertidoes{},
		consultor:   &fakeConsultor{respostas: map[fiscal.Orgao][]*infosimples.Resposta{}},
		notificador: &fakeNotificador{},
		fila:        &fakeFila{},
	}
	c.p = &Processador{
		Consultas:   c.consultas,
		Certidoes:   c.certidoes,
		Clientes:    fakeClientes{1: novoCliente(1, 7, "SP", "Campinas")},
		Consultor:   c.consultor,
		Notificador: c.notificador,
		Fila:        c.fila,
		Logger:      zap.NewNop(),
		Tentativas:  3,
		Janela:      fiscal.JanelaPadrao,
		Agora:       func() time.Time { return agoraTeste },
	}
	return c
}

func (c *cenario) job(orgao fiscal.Orgao) string {
	return c.consultas.add(Consulta{EscritorioID: 7, ClienteID: 1, Orgao: orgao}).ID
}

func TestProcessar_Sucesso(t *testing.T) {
	c := novoCenario()
	c.consultor.respostas[fiscal.OrgaoFederal] = []*infosimples.Resposta{{
		Code: 200,
		Data: []map[string]interface{}{{
			"conseguiu_emitir_certidao_negativa": true,
			"tipo":                               "Certidão Negativa de Débitos",
			"codigo_controle":                    "ABCD.1234",
			"emissao_data":                       "10/03/2025",
			"validade_data":                      "06/09/2025",
		}},
		SiteReceipts: []string{"https://recibo"},
	}}
	id := c.job(fiscal.OrgaoFederal)

	require.NoError(t, c.p.Processar(context.Background(), id))

	job := c.consultas.get(id)
	assert.Equal(t, StatusConcluida, job.Status)
	assert.Equal(t, 1, job.Tentativas)
	assert.Equal(t, 200, job.CodigoRetorno)
	assert.Equal(t, fiscal.SituacaoNegativa, job.Situacao)
	require.NotNil(t, job.CertidaoID)
	require.NotNil(t, job.FinalizadaEm)

	require.Len(t, c.certidoes.certidoes, 1)
	cert := c.certidoes.certidoes[0]
	assert.Equal(t, *job.CertidaoID, cert.ID)
	assert.Equal(t, "ABCD.1234", cert.Codigo)
	assert.Equal(t, "https://recibo", cert.URLComprovante)
	assert.Equal(t, "infosimples", cert.Fonte)
	require.NotNil(t, cert.DataValidade)
	assert.Equal(t, 6, cert.DataValidade.Day())
	require.NotNil(t, cert.UltimaConsulta)

	assert.Empty(t, c.notificador.tipos())
}

func TestProcessar_EntregaDuplicadaIgnorada(t *testing.T) {
	c := novoCenario()
	id := c.job(fiscal.OrgaoFGTS)

	require.NoError(t, c.p.Processar(context.Background(), id))
	require.NoError(t, c.p.Processar(context.Background(), id))

	assert.Equal(t, 1, c.consultor.total())
	assert.Equal(t, 1, c.consultas.get(id).Tentativas)
}

func TestProcessar_SemDadosViraPositivaEAlerta(t *testing.T) {
	c := novoCenario()
	c.consultor.respostas[fiscal.OrgaoTrabalhista] = []*infosimples.Resposta{{Code: 612, CodeMessage: "Não foi possível emitir a certidão"}}
	id := c.job(fiscal.OrgaoTrabalhista)

	require.NoError(t, c.p.Processar(context.Background(), id))

	job := c.consultas.get(id)
	assert.Equal(t, StatusConcluida, job.Status)
	assert.Equal(t, fiscal.SituacaoPositiva, job.Situacao)
	assert.Equal(t, []notificacao.Tipo{notificacao.CertidaoPositiva}, c.notificador.tipos())
}

func TestProcessar_CertidaoVencendoAlerta(t *testing.T) {
	c := novoCenario()
	c.consultor.respostas[fiscal.OrgaoFGTS] = []*infosimples.Resposta{{
		Code: 200,
		Data: []map[string]interface{}{{"situacao": "Regular", "validade": "20/03/2025"}},
	}}
	id := c.job(fiscal.OrgaoFGTS)

	require.NoError(t, c.p.Processar(context.Background(), id))
	assert.Equal(t, []notificacao.Tipo{notificacao.CertidaoVencendo}, c.notificador.tipos())
}

func TestProcessar_ErroTemporarioRetentaAteOLimite(t *testing.T) {
	c := novoCenario()
	c.consultor.respostas[fiscal.OrgaoFederal] = []*infosimples.Resposta{{Code: 605, CodeMessage: "timeout no portal"}}
	id := c.job(fiscal.OrgaoFederal)

	require.NoError(t, c.p.Processar(context.Background(), id))
	job := c.consultas.get(id)
	assert.Equal(t, StatusPendente, job.Status)
	assert.Equal(t, "timeout no portal", job.Erro)
	assert.Equal(t, []string{id}, c.fila.publicados())

	require.NoError(t, c.p.Processar(context.Background(), id))
	require.NoError(t, c.p.Processar(context.Background(), id))

	job = c.consultas.get(id)
	assert.Equal(t, StatusErro, job.Status)
	assert.Equal(t, 3, job.Tentativas)
	assert.Equal(t, 605, job.CodigoRetorno)
	assert.Contains(t, job.Erro, "após 3 tentativas")
	assert.Len(t, c.fila.publicados(), 2)
	assert.Equal(t, []notificacao.Tipo{notificacao.ConsultaErro}, c.notificador.tipos())
}

func TestProcessar_ErroTemporarioDepoisSucesso(t *testing.T) {
	c := novoCenario()
	c.consultor.respostas[fiscal.OrgaoFederal] = []*infosimples.Resposta{
		{Code: 609, CodeMessage: "captcha"},
		{Code: 200, Data: []map[string]interface{}{{"tipo": "Certidão Negativa"}}},
	}
	id := c.job(fiscal.OrgaoFederal)

	require.NoError(t, c.p.Processar(context.Background(), id))
	require.NoError(t, c.p.Processar(context.Background(), id))

	job := c.consultas.get(id)
	assert.Equal(t, StatusConcluida, job.Status)
	assert.Equal(t, 2, job.Tentativas)
}

func TestProcessar_ErroDefinitivo(t *testing.T) {
	c := novoCenario()
	c.consultor.respostas[fiscal.OrgaoFederal] = []*infosimples.Resposta{{Code: 601, CodeMessage: "token inválido"}}
	id := c.job(fiscal.OrgaoFederal)

	require.NoError(t, c.p.Processar(context.Background(), id))

	job := c.consultas.get(id)
	assert.Equal(t, StatusErro, job.Status)
	assert.Equal(t, fiscal.SituacaoErro, job.Situacao)
	assert.Equal(t, 601, job.CodigoRetorno)
	assert.Empty(t, c.fila.publicados())
	assert.Empty(t, c.certidoes.certidoes)
}

func TestProcessar_ErroDeTransporteRetenta(t *testing.T) {
	c := novoCenario()
	c.consultor.err = errors.New("connection reset")
	id := c.job(fiscal.OrgaoFederal)

	require.NoError(t, c.p.Processar(context.Background(), id))
	assert.Equal(t, StatusPendente, c.consultas.get(id).Status)

	c.consultor.err = infosimples.ErrTokenAusente
	require.NoError(t, c.p.Processar(context.Background(), id))
	assert.Equal(t, StatusErro, c.consultas.get(id).Status)
}

func TestProcessar_ClienteInexistente(t *testing.T) {
	c := novoCenario()
	id := c.consultas.add(Consulta{EscritorioID: 7, ClienteID: 99, Orgao: fiscal.OrgaoFederal}).ID

	require.NoError(t, c.p.Processar(context.Background(), id))
	assert.Equal(t, StatusErro, c.consultas.get(id).Status)
	assert.Equal(t, 0, c.consultor.total())
}
