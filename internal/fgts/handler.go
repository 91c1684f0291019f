package fgts

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/auth"
	"github.com/KromaEnergia/painel-fiscal/internal/cliente"
	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"github.com/KromaEnergia/painel-fiscal/internal/utils"

	"gorm.io/gorm"
)

type Clientes interface {
	BuscarPorID(db *gorm.DB, escritorioID, id uint) (*cliente.Cliente, error)
}

type Handler struct {
	DB         *gorm.DB
	Repository Repository
	Clientes   Clientes
	Agora      func() time.Time
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{DB: db, Repository: NewRepository(), Clientes: cliente.NewRepository(), Agora: time.Now}
}

type GuiaRequest struct {
	Competencia string  `json:"competencia"`
	Valor       float64 `json:"valor"`
	Vencimento  string  `json:"vencimento"`
	PagoEm      string  `json:"pagoEm"`
	Observacao  string  `json:"observacao"`
}

// Aplicar valida o payload. Sem vencimento, usa o padrão da competência.
func (req GuiaRequest) Aplicar(g *GuiaFGTS) error {
	comp, err := fiscal.ParseCompetencia(req.Competencia, utils.Fuso)
	if err != nil {
		return err
	}
	if req.Valor < 0 {
		return errors.New("o valor não pode ser negativo")
	}
	venc := VencimentoPadrao(comp)
	if strings.TrimSpace(req.Vencimento) != "" {
		if venc, err = utils.ParseDataJSON(req.Vencimento); err != nil {
			return errors.New("data inválida em 'vencimento'")
		}
	}
	var pago *time.Time
	if strings.TrimSpace(req.PagoEm) != "" {
		t, err := utils.ParseDataJSON(req.PagoEm)
		if err != nil {
			return errors.New("data inválida em 'pagoEm'")
		}
		pago = &t
	}

	g.Competencia = fiscal.Competencia(comp)
	g.Valor = req.Valor
	g.Vencimento = venc
	g.PagoEm = pago
	g.Observacao = strings.TrimSpace(req.Observacao)
	return nil
}

func (h *Handler) derivar(gs []GuiaFGTS) {
	agora := h.Agora()
	for i := range gs {
		gs[i].Derivar(agora)
	}
}

// ListarPorCliente trata GET /clientes/{id}/fgts
func (h *Handler) ListarPorCliente(w http.ResponseWriter, r *http.Request) {
	escID := auth.EscritorioID(r.Context())
	clienteID, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	if _, err := h.Clientes.BuscarPorID(h.DB, escID, clienteID); err != nil {
		http.Error(w, "Cliente não encontrado", http.StatusNotFound)
		return
	}
	gs, err := h.Repository.Listar(h.DB, escID, Filtro{ClienteID: clienteID})
	if err != nil {
		http.Error(w, "Erro ao listar guias", http.StatusInternalServerError)
		return
	}
	h.derivar(gs)
	utils.JSON(w, http.StatusOK, gs)
}

// Criar trata POST /clientes/{id}/fgts
func (h *Handler) Criar(w http.ResponseWriter, r *http.Request) {
	escID := auth.EscritorioID(r.Context())
	clienteID, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	var req GuiaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	if _, err := h.Clientes.BuscarPorID(h.DB, escID, clienteID); err != nil {
		http.Error(w, "Cliente não encontrado", http.StatusNotFound)
		return
	}
	g := GuiaFGTS{EscritorioID: escID, ClienteID: clienteID}
	if err := req.Aplicar(&g); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := h.Repository.BuscarPorCompetencia(h.DB, clienteID, g.Competencia); err == nil {
		http.Error(w, "já existe guia para esta competência", http.StatusConflict)
		return
	}
	if err := h.Repository.Salvar(h.DB, &g); err != nil {
		http.Error(w, "Erro ao salvar guia", http.StatusInternalServerError)
		return
	}
	g.Derivar(h.Agora())
	utils.JSON(w, http.StatusCreated, g)
}

// Listar trata GET /fgts?status=atrasado&clienteId=
func (h *Handler) Listar(w http.ResponseWriter, r *http.Request) {
	status := fiscal.Prazo(r.URL.Query().Get("status"))
	f := Filtro{
		ClienteID: utils.QueryUint(r, "clienteId"),
		Abertas:   status == fiscal.PrazoPendente || status == fiscal.PrazoAtrasado,
	}
	gs, err := h.Repository.Listar(h.DB, auth.EscritorioID(r.Context()), f)
	if err != nil {
		http.Error(w, "Erro ao listar guias", http.StatusInternalServerError)
		return
	}
	h.derivar(gs)
	if status == "" {
		utils.JSON(w, http.StatusOK, gs)
		return
	}
	out := make([]GuiaFGTS, 0, len(gs))
	for _, g := range gs {
		if g.Status == status {
			out = append(out, g)
		}
	}
	utils.JSON(w, http.StatusOK, out)
}

// BuscarPorID trata GET /fgts/{id}
func (h *Handler) BuscarPorID(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	g, err := h.Repository.BuscarPorID(h.DB, auth.EscritorioID(r.Context()), id)
	if err != nil {
		http.Error(w, "Guia não encontrada", http.StatusNotFound)
		return
	}
	g.Derivar(h.Agora())
	utils.JSON(w, http.StatusOK, g)
}

// Atualizar trata PUT /fgts/{id}
func (h *Handler) Atualizar(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	var req GuiaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	g, err := h.Repository.BuscarPorID(h.DB, auth.EscritorioID(r.Context()), id)
	if err != nil {
		http.Error(w, "Guia não encontrada", http.StatusNotFound)
		return
	}
	if err := req.Aplicar(g); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if outra, err := h.Repository.BuscarPorCompetencia(h.DB, g.ClienteID, g.Competencia); err == nil && outra.ID != g.ID {
		http.Error(w, "já existe guia para esta competência", http.StatusConflict)
		return
	}
	if err := h.Repository.Salvar(h.DB, g); err != nil {
		http.Error(w, "Erro ao atualizar guia", http.StatusInternalServerError)
		return
	}
	g.Derivar(h.Agora())
	utils.JSON(w, http.StatusOK, g)
}

// RegistrarPagamento trata PATCH /fgts/{id}/pagamento. {"pagoEm": null} desfaz o pagamento.
func (h *Handler) RegistrarPagamento(w http.ResponseWriter, r *http.Request) {
	escID := auth.EscritorioID(r.Context())
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	var payload struct {
		PagoEm *string `json:"pagoEm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	var pagoEm *time.Time
	if payload.PagoEm != nil {
		t, err := utils.ParseDataJSON(*payload.PagoEm)
		if err != nil {
			http.Error(w, "data inválida em 'pagoEm'", http.StatusBadRequest)
			return
		}
		pagoEm = &t
	}
	if err := h.Repository.RegistrarPagamento(h.DB, escID, id, pagoEm); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Guia não encontrada", http.StatusNotFound)
			return
		}
		http.Error(w, "Erro ao registrar pagamento", http.StatusInternalServerError)
		return
	}
	g, err := h.Repository.BuscarPorID(h.DB, escID, id)
	if err != nil {
		http.Error(w, "Erro ao buscar guia atualizada", http.StatusInternalServerError)
		return
	}
	g.Derivar(h.Agora())
	utils.JSON(w, http.StatusOK, g)
}

// Deletar trata DELETE /fgts/{id}
func (h *Handler) Deletar(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	if err := h.Repository.Deletar(h.DB, auth.EscritorioID(r.Context()), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Guia não encontrada", http.StatusNotFound)
			return
		}
		http.Error(w, "Erro ao excluir guia", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
