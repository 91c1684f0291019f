package consulta

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/cliente"
	"github.com/KromaEnergia/painel-fiscal/internal/cnd"
	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"github.com/KromaEnergia/painel-fiscal/internal/infosimples"
	"github.com/KromaEnergia/painel-fiscal/internal/notificacao"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Consultor é a chamada à InfoSimples.
type Consultor interface {
	Consultar(ctx context.Context, orgao fiscal.Orgao, p infosimples.Parametros) (*infosimples.Resposta, error)
}

type Notificador interface {
	Enviar(ctx context.Context, a notificacao.Alerta) error
}

type Publicador interface {
	Publicar(ctx context.Context, ids ...string) error
}

type Clientes interface {
	BuscarPorID(db *gorm.DB, escritorioID, id uint) (*cliente.Cliente, error)
	Listar(db *gorm.DB, escritorioID uint, f cliente.Filtro) ([]cliente.Cliente, error)
}

// Processador executa um job: reivindica, consulta, grava a certidão e finaliza.
type Processador struct {
	DB          *gorm.DB
	Consultas   Repository
	Certidoes   cnd.Repository
	Clientes    Clientes
	Consultor   Consultor
	Notificador Notificador
	Fila        Publicador
	Logger      *zap.Logger

	Tentativas        int
	AtrasoRetentativa time.Duration
	Janela            int
	Agora             func() time.Time
}

func (p *Processador) agora() time.Time {
	if p.Agora != nil {
		return p.Agora()
	}
	return time.Now()
}

// Processar trata uma entrega da fila. Só retorna erro de infraestrutura;
// falhas da consulta ficam registradas no próprio job.
func (p *Processador) Processar(ctx context.Context, id string) error {
	log := p.Logger.With(zap.String("consulta_id", id))

	ok, err := p.Consultas.Reivindicar(p.DB, id, p.agora())
	if err != nil {
		return fmt.Errorf("reivindicar consulta %s: %w", id, err)
	}
	if !ok {
		log.Debug("consulta já reivindicada ou finalizada")
		return nil
	}
	c, err := p.Consultas.Carregar(p.DB, id)
	if err != nil {
		return fmt.Errorf("carregar consulta %s: %w", id, err)
	}
	log = log.With(
		zap.Uint("escritorio_id", c.EscritorioID),
		zap.Uint("cliente_id", c.ClienteID),
		zap.String("orgao", string(c.Orgao)),
		zap.Int("tentativa", c.Tentativas),
	)

	cli, err := p.Clientes.BuscarPorID(p.DB, c.EscritorioID, c.ClienteID)
	if err != nil {
		return p.falhar(ctx, log, c, nil, "cliente não encontrado")
	}

	params := infosimples.Parametros{
		CNPJ:              cli.CNPJ,
		UF:                cli.UF,
		Municipio:         cli.Municipio,
		InscricaoEstadual: cli.InscricaoEstadual,
	}
	resp, err := p.Consultor.Consultar(ctx, c.Orgao, params)
	switch {
	case ctx.Err() != nil:
		// desligamento: devolve para a fila sem contar como falha
		if err := p.Consultas.VoltarParaFila(p.DB, id, "interrompida"); err != nil {
			log.Warn("falha ao devolver consulta interrompida", zap.Error(err))
		}
		return nil
	case errors.Is(err, infosimples.ErrTokenAusente), errors.Is(err, infosimples.ErrOrgaoSemServico):
		return p.falhar(ctx, log, c, nil, err.Error())
	case err != nil:
		return p.retentar(ctx, log, c, nil, err.Error())
	}

	switch resp.Resultado() {
	case infosimples.ErroTemporario:
		return p.retentar(ctx, log, c, resp, resp.CodeMessage)
	case infosimples.Erro:
		return p.falhar(ctx, log, c, resp, resp.CodeMessage)
	}

	res, err := resp.Certidao()
	if err != nil {
		return p.falhar(ctx, log, c, resp, err.Error())
	}
	return p.concluir(ctx, log, c, cli, resp, res)
}

func (p *Processador) concluir(ctx context.Context, log *zap.Logger, c *Consulta, cli *cliente.Cliente,
	resp *infosimples.Resposta, res *infosimples.Certidao) error {
	agora := p.agora()
	cert := cnd.Certidao{
		EscritorioID:   c.EscritorioID,
		ClienteID:      c.ClienteID,
		Orgao:          c.Orgao,
		Situacao:       res.Situacao,
		Codigo:         res.Codigo,
		URLComprovante: res.Comprovante,
		Observacao:     res.Mensagem,
		UltimaConsulta: &agora,
		Fonte:          cnd.FonteInfoSimples,
	}
	if !res.Emissao.IsZero() {
		e := res.Emissao
		cert.DataEmissao = &e
	}
	if !res.Validade.IsZero() {
		v := res.Validade
		cert.DataValidade = &v
	}
	// uma falha daqui em diante deixa o job em processamento; o agendador o
	// devolve à fila e a substituição da certidão é idempotente
	if err := p.Certidoes.Substituir(p.DB, &cert); err != nil {
		return fmt.Errorf("gravar certidão da consulta %s: %w", c.ID, err)
	}
	err := p.Consultas.Finalizar(p.DB, c.ID, Resultado{
		Status:        StatusConcluida,
		CodigoRetorno: resp.Code,
		Situacao:      cert.Situacao,
		CertidaoID:    &cert.ID,
		FinalizadaEm:  agora,
	})
	if err != nil {
		return fmt.Errorf("finalizar consulta %s: %w", c.ID, err)
	}
	log.Info("consulta concluída", zap.String("situacao", string(cert.Situacao)), zap.Int("code", resp.Code))

	cert.Derivar(agora, p.Janela)
	switch {
	case cert.Situacao == fiscal.SituacaoPositiva:
		p.alertar(ctx, log, notificacao.Alerta{
			Tipo:         notificacao.CertidaoPositiva,
			EscritorioID: c.EscritorioID,
			ClienteID:    c.ClienteID,
			CNPJ:         cli.CNPJ,
			Orgao:        string(c.Orgao),
			Mensagem:     fmt.Sprintf("Certidão %s positiva para %s", c.Orgao, cli.RazaoSocial),
			Detalhes:     map[string]interface{}{"certidaoId": cert.ID, "consultaId": c.ID},
		})
	case cert.Vencendo():
		p.alertar(ctx, log, notificacao.Alerta{
			Tipo:         notificacao.CertidaoVencendo,
			EscritorioID: c.EscritorioID,
			ClienteID:    c.ClienteID,
			CNPJ:         cli.CNPJ,
			Orgao:        string(c.Orgao),
			Mensagem:     fmt.Sprintf("Certidão %s de %s vence em %d dia(s)", c.Orgao, cli.RazaoSocial, *cert.DiasParaVencer),
			Detalhes:     map[string]interface{}{"certidaoId": cert.ID, "status": cert.Status},
		})
	}
	return nil
}

func (p *Processador) retentar(ctx context.Context, log *zap.Logger, c *Consulta, resp *infosimples.Resposta, motivo string) error {
	if c.Tentativas >= p.Tentativas {
		return p.falhar(ctx, log, c, resp, fmt.Sprintf("%s (após %d tentativas)", motivo, c.Tentativas))
	}
	if err := p.Consultas.VoltarParaFila(p.DB, c.ID, motivo); err != nil {
		return fmt.Errorf("devolver consulta %s: %w", c.ID, err)
	}
	log.Warn("consulta devolvida para nova tentativa", zap.String("motivo", motivo))

	id := c.ID
	publicar := func() {
		if err := p.Fila.Publicar(context.Background(), id); err != nil {
			// continua pendente; o agendador republica
			p.Logger.Error("falha ao republicar consulta", zap.String("consulta_id", id), zap.Error(err))
		}
	}
	if p.AtrasoRetentativa <= 0 {
		publicar()
	} else {
		time.AfterFunc(p.AtrasoRetentativa, publicar)
	}
	return nil
}

func (p *Processador) falhar(ctx context.Context, log *zap.Logger, c *Consulta, resp *infosimples.Resposta, motivo string) error {
	res := Resultado{Status: StatusErro, Erro: motivo, Situacao: fiscal.SituacaoErro, FinalizadaEm: p.agora()}
	if resp != nil {
		res.CodigoRetorno = resp.Code
	}
	if err := p.Consultas.Finalizar(p.DB, c.ID, res); err != nil {
		return fmt.Errorf("finalizar consulta %s: %w", c.ID, err)
	}
	log.Warn("consulta com erro", zap.String("motivo", motivo), zap.Int("code", res.CodigoRetorno))

	p.alertar(ctx, log, notificacao.Alerta{
		Tipo:         notificacao.ConsultaErro,
		EscritorioID: c.EscritorioID,
		ClienteID:    c.ClienteID,
		Orgao:        string(c.Orgao),
		Mensagem:     motivo,
		Detalhes:     map[string]interface{}{"consultaId": c.ID, "codigo": res.CodigoRetorno},
	})
	return nil
}

func (p *Processador) alertar(ctx context.Context, log *zap.Logger, a notificacao.Alerta) {
	if p.Notificador == nil {
		return
	}
	if err := p.Notificador.Enviar(ctx, a); err != nil {
		log.Warn("falha ao enviar alerta", zap.String("tipo", string(a.Tipo)), zap.Error(err))
	}
}
