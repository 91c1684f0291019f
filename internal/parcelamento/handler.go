package parcelamento

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

const maxParcelas = 240

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

// ParcelamentoRequest cria o parcelamento. DataInicio é o vencimento da primeira parcela.
type ParcelamentoRequest struct {
	Orgao       string  `json:"orgao"`
	Numero      string  `json:"numero"`
	Modalidade  string  `json:"modalidade"`
	ValorTotal  float64 `json:"valorTotal"`
	QtdParcelas int     `json:"qtdParcelas"`
	DataInicio  string  `json:"dataInicio"`
}

type CabecalhoRequest struct {
	Numero     *string `json:"numero"`
	Modalidade *string `json:"modalidade"`
	Situacao   *string `json:"situacao"`
}

func (h *Handler) derivar(ps []Parcelamento) {
	agora := h.Agora()
	for i := range ps {
		ps[i].Derivar(agora)
	}
}

// ListarPorCliente trata GET /clientes/{id}/parcelamentos
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
	ps, err := h.Repository.Listar(h.DB, escID, Filtro{ClienteID: clienteID})
	if err != nil {
		http.Error(w, "Erro ao listar parcelamentos", http.StatusInternalServerError)
		return
	}
	h.derivar(ps)
	utils.JSON(w, http.StatusOK, ps)
}

// Criar trata POST /clientes/{id}/parcelamentos e gera as parcelas mensais.
func (h *Handler) Criar(w http.ResponseWriter, r *http.Request) {
	escID := auth.EscritorioID(r.Context())
	clienteID, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	var req ParcelamentoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	orgao := fiscal.Orgao(strings.ToLower(strings.TrimSpace(req.Orgao)))
	if !orgao.Valido() {
		http.Error(w, "órgão inválido", http.StatusBadRequest)
		return
	}
	if req.ValorTotal <= 0 {
		http.Error(w, "o valor total deve ser maior que zero", http.StatusBadRequest)
		return
	}
	if req.QtdParcelas < 1 || req.QtdParcelas > maxParcelas {
		http.Error(w, "quantidade de parcelas inválida", http.StatusBadRequest)
		return
	}
	inicio, err := utils.ParseDataJSON(req.DataInicio)
	if err != nil {
		http.Error(w, "o campo 'dataInicio' é obrigatório (AAAA-MM-DD)", http.StatusBadRequest)
		return
	}
	if _, err := h.Clientes.BuscarPorID(h.DB, escID, clienteID); err != nil {
		http.Error(w, "Cliente não encontrado", http.StatusNotFound)
		return
	}

	p := Parcelamento{
		EscritorioID: escID,
		ClienteID:    clienteID,
		Orgao:        orgao,
		Numero:       strings.TrimSpace(req.Numero),
		Modalidade:   strings.TrimSpace(req.Modalidade),
		ValorTotal:   req.ValorTotal,
		QtdParcelas:  req.QtdParcelas,
		DataInicio:   inicio,
		Situacao:     SituacaoAtivo,
		Parcelas:     GerarParcelas(req.ValorTotal, req.QtdParcelas, inicio.In(utils.Fuso)),
	}
	if err := h.Repository.Criar(h.DB, &p); err != nil {
		http.Error(w, "Erro ao salvar parcelamento", http.StatusInternalServerError)
		return
	}
	p.Derivar(h.Agora())
	utils.JSON(w, http.StatusCreated, p)
}

// Listar trata GET /parcelamentos?status=atrasado&situacao=ativo&clienteId=
func (h *Handler) Listar(w http.ResponseWriter, r *http.Request) {
	f := Filtro{ClienteID: utils.QueryUint(r, "clienteId"), Situacao: r.URL.Query().Get("situacao")}
	if f.Situacao != "" && !situacoes[f.Situacao] {
		http.Error(w, "situação inválida", http.StatusBadRequest)
		return
	}
	ps, err := h.Repository.Listar(h.DB, auth.EscritorioID(r.Context()), f)
	if err != nil {
		http.Error(w, "Erro ao listar parcelamentos", http.StatusInternalServerError)
		return
	}
	h.derivar(ps)
	status := r.URL.Query().Get("status")
	if status == "" {
		utils.JSON(w, http.StatusOK, ps)
		return
	}
	out := make([]Parcelamento, 0, len(ps))
	for _, p := range ps {
		if p.Status == status {
			out = append(out, p)
		}
	}
	utils.JSON(w, http.StatusOK, out)
}

// BuscarPorID trata GET /parcelamentos/{id}
func (h *Handler) BuscarPorID(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	p, err := h.Repository.BuscarPorID(h.DB, auth.EscritorioID(r.Context()), id)
	if err != nil {
		http.Error(w, "Parcelamento não encontrado", http.StatusNotFound)
		return
	}
	p.Derivar(h.Agora())
	utils.JSON(w, http.StatusOK, p)
}

// Atualizar trata PUT /parcelamentos/{id}: número, modalidade e situação.
func (h *Handler) Atualizar(w http.ResponseWriter, r *http.Request) {
	escID := auth.EscritorioID(r.Context())
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	var req CabecalhoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	p, err := h.Repository.BuscarPorID(h.DB, escID, id)
	if err != nil {
		http.Error(w, "Parcelamento não encontrado", http.StatusNotFound)
		return
	}
	if req.Numero != nil {
		p.Numero = strings.TrimSpace(*req.Numero)
	}
	if req.Modalidade != nil {
		p.Modalidade = strings.TrimSpace(*req.Modalidade)
	}
	if req.Situacao != nil {
		s := strings.ToLower(strings.TrimSpace(*req.Situacao))
		if !situacoes[s] {
			http.Error(w, "Situação inválida. Use 'ativo', 'rescindido' ou 'quitado'.", http.StatusBadRequest)
			return
		}
		p.Situacao = s
	}
	if err := h.Repository.AtualizarCabecalho(h.DB, p); err != nil {
		http.Error(w, "Erro ao atualizar parcelamento", http.StatusInternalServerError)
		return
	}
	p.Derivar(h.Agora())
	utils.JSON(w, http.StatusOK, p)
}

// AtualizarStatusParcela trata PATCH /parcelas/{pid}/status.
// Permite "Pendente", "Pago" e "Cancelada"; uma parcela paga não pode voltar atrás.
func (h *Handler) AtualizarStatusParcela(w http.ResponseWriter, r *http.Request) {
	escID := auth.EscritorioID(r.Context())
	pid, err := utils.IDDaRota(r, "pid")
	if err != nil {
		http.Error(w, "ID da parcela inválido", http.StatusBadRequest)
		return
	}
	var payload struct {
		Status        string `json:"status"`
		DataPagamento string `json:"dataPagamento"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "JSON mal formado", http.StatusBadRequest)
		return
	}
	if !statusParcela[payload.Status] {
		http.Error(w, "Status inválido. Use 'Pendente', 'Pago' ou 'Cancelada'.", http.StatusBadRequest)
		return
	}
	dataPagamento := h.Agora()
	if payload.DataPagamento != "" {
		if dataPagamento, err = utils.ParseDataJSON(payload.DataPagamento); err != nil {
			http.Error(w, "data inválida em 'dataPagamento'", http.StatusBadRequest)
			return
		}
	}

	atual, err := h.Repository.BuscarParcela(h.DB, escID, pid)
	if err != nil {
		http.Error(w, "Parcela não encontrada", http.StatusNotFound)
		return
	}
	if atual.Status == ParcelaPaga && payload.Status != ParcelaPaga {
		http.Error(w, "Não é permitido alterar o status de uma parcela já paga", http.StatusBadRequest)
		return
	}

	parcela, err := h.Repository.AtualizarStatusParcela(h.DB, pid, payload.Status, dataPagamento)
	if err != nil {
		http.Error(w, "Erro ao atualizar status da parcela", http.StatusInternalServerError)
		return
	}
	utils.JSON(w, http.StatusOK, parcela)
}

// Deletar trata DELETE /parcelamentos/{id}
func (h *Handler) Deletar(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	if err := h.Repository.Deletar(h.DB, auth.EscritorioID(r.Context()), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Parcelamento não encontrado", http.StatusNotFound)
			return
		}
		http.Error(w, "Erro ao excluir parcelamento", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
