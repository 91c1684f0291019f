package dashboard

import (
	"net/http"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/auth"
	"github.com/KromaEnergia/painel-fiscal/internal/caixapostal"
	"github.com/KromaEnergia/painel-fiscal/internal/cliente"
	"github.com/KromaEnergia/painel-fiscal/internal/cnd"
	"github.com/KromaEnergia/painel-fiscal/internal/consulta"
	"github.com/KromaEnergia/painel-fiscal/internal/declaracao"
	"github.com/KromaEnergia/painel-fiscal/internal/fgts"
	"github.com/KromaEnergia/painel-fiscal/internal/parcelamento"
	"github.com/KromaEnergia/painel-fiscal/internal/simples"
	"github.com/KromaEnergia/painel-fiscal/internal/tarefa"
	"github.com/KromaEnergia/painel-fiscal/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Handler struct {
	DB            *gorm.DB
	Clientes      cliente.Repository
	Certidoes     cnd.Repository
	Consultas     consulta.Repository
	Guias         fgts.Repository
	Declaracoes   declaracao.Repository
	Parcelamentos parcelamento.Repository
	Simples       simples.Repository
	Mensagens     caixapostal.Repository
	Tarefas       tarefa.Repository
	Logger        *zap.Logger
	Janela        int
	Agora         func() time.Time
}

func NewHandler(db *gorm.DB, janela int, logger *zap.Logger) *Handler {
	return &Handler{
		DB:            db,
		Clientes:      cliente.NewRepository(),
		Certidoes:     cnd.NewRepository(),
		Consultas:     consulta.NewRepository(),
		Guias:         fgts.NewRepository(),
		Declaracoes:   declaracao.NewRepository(),
		Parcelamentos: parcelamento.NewRepository(),
		Simples:       simples.NewRepository(),
		Mensagens:     caixapostal.NewRepository(),
		Tarefas:       tarefa.NewRepository(),
		Logger:        logger,
		Janela:        janela,
		Agora:         time.Now,
	}
}

// Carregar lê as fontes do dashboard em paralelo.
func (h *Handler) Carregar(r *http.Request, escID uint, agora time.Time) (Dados, error) {
	var d Dados
	g, ctx := errgroup.WithContext(r.Context())
	db := h.DB.WithContext(ctx)

	g.Go(func() (err error) {
		d.Clientes, err = h.Clientes.Contar(db, escID)
		return err
	})
	g.Go(func() (err error) {
		d.Certidoes, err = h.Certidoes.Listar(db, escID, cnd.Filtro{})
		return err
	})
	g.Go(func() (err error) {
		d.Guias, err = h.Guias.Listar(db, escID, fgts.Filtro{Abertas: true})
		return err
	})
	g.Go(func() (err error) {
		d.Declaracoes, err = h.Declaracoes.Listar(db, escID, declaracao.Filtro{Abertas: true})
		return err
	})
	g.Go(func() (err error) {
		d.Parcelamentos, err = h.Parcelamentos.Listar(db, escID, parcelamento.Filtro{Situacao: parcelamento.SituacaoAtivo})
		return err
	})
	g.Go(func() (err error) {
		d.AlertasSimples, err = simples.Alertas(db, h.Simples, h.Clientes, escID, agora.In(utils.Fuso))
		return err
	})
	g.Go(func() (err error) {
		d.Mensagens, err = h.Mensagens.Contar(db, escID)
		return err
	})
	g.Go(func() (err error) {
		d.Tarefas, err = h.Tarefas.Listar(db, escID, tarefa.Filtro{Status: []string{tarefa.StatusPendente, tarefa.StatusEmAndamento}})
		return err
	})
	g.Go(func() (err error) {
		d.ConsultasAbertas, err = h.Consultas.ContarAbertas(db, escID)
		return err
	})
	return d, g.Wait()
}

// Obter trata GET /dashboard
func (h *Handler) Obter(w http.ResponseWriter, r *http.Request) {
	escID := auth.EscritorioID(r.Context())
	agora := h.Agora()
	d, err := h.Carregar(r, escID, agora)
	if err != nil {
		h.Logger.Error("falha ao montar dashboard", zap.Uint("escritorio_id", escID), zap.Error(err))
		http.Error(w, "Erro ao montar o dashboard", http.StatusInternalServerError)
		return
	}
	utils.JSON(w, http.StatusOK, Montar(d, agora, h.Janela))
}
