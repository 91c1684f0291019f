package declaracao

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

type DeclaracaoRequest struct {
	Tipo        string `json:"tipo"`
	Competencia string `json:"competencia"`
	Prazo       string `json:"prazo"`
	EntregueEm  string `json:"entregueEm"`
	Recibo      string `json:"recibo"`
	Observacao  string `json:"observacao"`
}

func (req DeclaracaoRequest) Aplicar(d *Declaracao) error {
	tipo, ok := TipoValido(req.Tipo)
	if !ok {
		return errors.New("tipo de declaração inválido")
	}
	comp, err := fiscal.ParseCompetencia(req.Competencia, utils.Fuso)
	if err != nil {
		return err
	}
	prazo, err := utils.ParseDataJSON(req.Prazo)
	if err != nil {
		return errors.New("o campo 'prazo' é obrigatório (AAAA-MM-DD)")
	}
	var entregue *time.Time
	if strings.TrimSpace(req.EntregueEm) != "" {
		t, err := utils.ParseDataJSON(req.EntregueEm)
		if err != nil {
			return errors.New("data inválida em 'entregueEm'")
		}
		entregue = &t
	}

	d.Tipo = tipo
	d.Competencia = fiscal.Competencia(comp)
	d.Prazo = prazo
	d.EntregueEm = entregue
	d.Recibo = strings.TrimSpace(req.Recibo)
	d.Observacao = strings.TrimSpace(req.Observacao)
	return nil
}

func (h *Handler) derivar(ds []Declaracao) {
	agora := h.Agora()
	for i := range ds {
		ds[i].Derivar(agora)
	}
}

func filtrarPorStatus(ds []Declaracao, status fiscal.Prazo) []Declaracao {
	if status == "" {
		return ds
	}
	out := make([]Declaracao, 0, len(ds))
	for _, d := range ds {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out
}

// ListarPorCliente trata GET /clientes/{id}/declaracoes
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
	ds, err := h.Repository.Listar(h.DB, escID, Filtro{ClienteID: clienteID})
	if err != nil {
		http.Error(w, "Erro ao listar declarações", http.StatusInternalServerError)
		return
	}
	h.derivar(ds)
	utils.JSON(w, http.StatusOK, ds)
}

// Criar trata POST /clientes/{id}/declaracoes
func (h *Handler) Criar(w http.ResponseWriter, r *http.Request) {
	escID := auth.EscritorioID(r.Context())
	clienteID, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	var req DeclaracaoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	if _, err := h.Clientes.BuscarPorID(h.DB, escID, clienteID); err != nil {
		http.Error(w, "Cliente não encontrado", http.StatusNotFound)
		return
	}
	d := Declaracao{EscritorioID: escID, ClienteID: clienteID}
	if err := req.Aplicar(&d); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := h.Repository.BuscarExistente(h.DB, clienteID, d.Tipo, d.Competencia); err == nil {
		http.Error(w, "declaração já cadastrada para esta competência", http.StatusConflict)
		return
	}
	if err := h.Repository.Salvar(h.DB, &d); err != nil {
		http.Error(w, "Erro ao salvar declaração", http.StatusInternalServerError)
		return
	}
	d.Derivar(h.Agora())
	utils.JSON(w, http.StatusCreated, d)
}

// Listar trata GET /declaracoes?status=&tipo=&clienteId=
func (h *Handler) Listar(w http.ResponseWriter, r *http.Request) {
	status := fiscal.Prazo(r.URL.Query().Get("status"))
	f := Filtro{
		ClienteID: utils.QueryUint(r, "clienteId"),
		Abertas:   status == fiscal.PrazoPendente || status == fiscal.PrazoAtrasado,
	}
	if t := r.URL.Query().Get("tipo"); t != "" {
		tipo, ok := TipoValido(t)
		if !ok {
			http.Error(w, "tipo de declaração inválido", http.StatusBadRequest)
			return
		}
		f.Tipo = tipo
	}
	ds, err := h.Repository.Listar(h.DB, auth.EscritorioID(r.Context()), f)
	if err != nil {
		http.Error(w, "Erro ao listar declarações", http.StatusInternalServerError)
		return
	}
	h.derivar(ds)
	utils.JSON(w, http.StatusOK, filtrarPorStatus(ds, status))
}

// BuscarPorID trata GET /declaracoes/{id}
func (h *Handler) BuscarPorID(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	d, err := h.Repository.BuscarPorID(h.DB, auth.EscritorioID(r.Context()), id)
	if err != nil {
		http.Error(w, "Declaração não encontrada", http.StatusNotFound)
		return
	}
	d.Derivar(h.Agora())
	utils.JSON(w, http.StatusOK, d)
}

// Atualizar trata PUT /declaracoes/{id}
func (h *Handler) Atualizar(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	var req DeclaracaoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	d, err := h.Repository.BuscarPorID(h.DB, auth.EscritorioID(r.Context()), id)
	if err != nil {
		http.Error(w, "Declaração não encontrada", http.StatusNotFound)
		return
	}
	if err := req.Aplicar(d); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if outra, err := h.Repository.BuscarExistente(h.DB, d.ClienteID, d.Tipo, d.Competencia); err == nil && outra.ID != d.ID {
		http.Error(w, "declaração já cadastrada para esta competência", http.StatusConflict)
		return
	}
	if err := h.Repository.Salvar(h.DB, d); err != nil {
		http.Error(w, "Erro ao atualizar declaração", http.StatusInternalServerError)
		return
	}
	d.Derivar(h.Agora())
	utils.JSON(w, http.StatusOK, d)
}

// RegistrarEntrega trata PATCH /declaracoes/{id}/entrega. Sem entregueEm, usa o momento atual.
func (h *Handler) RegistrarEntrega(w http.ResponseWriter, r *http.Request) {
	escID := auth.EscritorioID(r.Context())
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	var payload struct {
		EntregueEm string `json:"entregueEm"`
		Recibo     string `json:"recibo"`
		Desfazer   bool   `json:"desfazer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	var entregue *time.Time
	recibo := strings.TrimSpace(payload.Recibo)
	if payload.Desfazer {
		recibo = ""
	} else {
		t := h.Agora()
		if strings.TrimSpace(payload.EntregueEm) != "" {
			if t, err = utils.ParseDataJSON(payload.EntregueEm); err != nil {
				http.Error(w, "data inválida em 'entregueEm'", http.StatusBadRequest)
				return
			}
		}
		entregue = &t
	}
	if err := h.Repository.RegistrarEntrega(h.DB, escID, id, entregue, recibo); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Declaração não encontrada", http.StatusNotFound)
			return
		}
		http.Error(w, "Erro ao registrar entrega", http.StatusInternalServerError)
		return
	}
	d, err := h.Repository.BuscarPorID(h.DB, escID, id)
	if err != nil {
		http.Error(w, "Erro ao buscar declaração atualizada", http.StatusInternalServerError)
		return
	}
	d.Derivar(h.Agora())
	utils.JSON(w, http.StatusOK, d)
}

// Deletar trata DELETE /declaracoes/{id}
func (h *Handler) Deletar(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	if err := h.Repository.Deletar(h.DB, auth.EscritorioID(r.Context()), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Declaração não encontrada", http.StatusNotFound)
			return
		}
		http.Error(w, "Erro ao excluir declaração", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
