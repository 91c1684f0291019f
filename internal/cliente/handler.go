package cliente

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/KromaEnergia/painel-fiscal/internal/auth"
	"github.com/KromaEnergia/painel-fiscal/internal/utils"

	"gorm.io/gorm"
)

type Handler struct {
	DB         *gorm.DB
	Repository Repository
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{DB: db, Repository: NewRepository()}
}

type ClienteRequest struct {
	RazaoSocial        string `json:"razaoSocial"`
	NomeFantasia       string `json:"nomeFantasia"`
	CNPJ               string `json:"cnpj"`
	UF                 string `json:"uf"`
	Municipio          string `json:"municipio"`
	InscricaoEstadual  string `json:"inscricaoEstadual"`
	InscricaoMunicipal string `json:"inscricaoMunicipal"`
	Regime             string `json:"regime"`
	Ativo              *bool  `json:"ativo"`
}

// Aplicar valida o payload e copia os campos para o cliente.
func (req ClienteRequest) Aplicar(c *Cliente) error {
	cnpj, err := utils.NormalizarCNPJ(req.CNPJ)
	if err != nil {
		return err
	}
	razao := strings.TrimSpace(req.RazaoSocial)
	if razao == "" {
		return errors.New("o campo 'razaoSocial' é obrigatório")
	}
	regime := strings.ToLower(strings.TrimSpace(req.Regime))
	if regime == "" {
		regime = RegimeSimples
	}
	if !regimes[regime] {
		return errors.New("regime inválido. Use 'simples', 'presumido', 'real' ou 'mei'")
	}
	uf := strings.ToUpper(strings.TrimSpace(req.UF))
	if uf != "" && len(uf) != 2 {
		return errors.New("UF inválida")
	}

	c.RazaoSocial = razao
	c.NomeFantasia = strings.TrimSpace(req.NomeFantasia)
	c.CNPJ = cnpj
	c.UF = uf
	c.Municipio = strings.TrimSpace(req.Municipio)
	c.InscricaoEstadual = utils.SomenteDigitos(req.InscricaoEstadual)
	c.InscricaoMunicipal = strings.TrimSpace(req.InscricaoMunicipal)
	c.Regime = regime
	if req.Ativo != nil {
		c.Ativo = *req.Ativo
	}
	return nil
}

// Criar trata POST /clientes
func (h *Handler) Criar(w http.ResponseWriter, r *http.Request) {
	escID := auth.EscritorioID(r.Context())

	var req ClienteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	c := Cliente{EscritorioID: escID, Ativo: true}
	if err := req.Aplicar(&c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := h.Repository.BuscarPorCNPJ(h.DB, escID, c.CNPJ); err == nil {
		http.Error(w, "cliente já cadastrado com este CNPJ", http.StatusConflict)
		return
	}
	if err := h.Repository.Salvar(h.DB, &c); err != nil {
		http.Error(w, "Erro ao salvar cliente", http.StatusInternalServerError)
		return
	}
	utils.JSON(w, http.StatusCreated, c)
}

// Listar trata GET /clientes?busca=&ativo=
func (h *Handler) Listar(w http.ResponseWriter, r *http.Request) {
	f := Filtro{Busca: r.URL.Query().Get("busca"), Ativo: utils.QueryBool(r, "ativo")}
	cs, err := h.Repository.Listar(h.DB, auth.EscritorioID(r.Context()), f)
	if err != nil {
		http.Error(w, "Erro ao listar clientes", http.StatusInternalServerError)
		return
	}
	utils.JSON(w, http.StatusOK, cs)
}

// BuscarPorID trata GET /clientes/{id}
func (h *Handler) BuscarPorID(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	c, err := h.Repository.BuscarPorID(h.DB, auth.EscritorioID(r.Context()), id)
	if err != nil {
		http.Error(w, "Cliente não encontrado", http.StatusNotFound)
		return
	}
	utils.JSON(w, http.StatusOK, c)
}

// Atualizar trata PUT /clientes/{id}
func (h *Handler) Atualizar(w http.ResponseWriter, r *http.Request) {
	escID := auth.EscritorioID(r.Context())
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	var req ClienteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	c, err := h.Repository.BuscarPorID(h.DB, escID, id)
	if err != nil {
		http.Error(w, "Cliente não encontrado", http.StatusNotFound)
		return
	}
	if err := req.Aplicar(c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if outro, err := h.Repository.BuscarPorCNPJ(h.DB, escID, c.CNPJ); err == nil && outro.ID != c.ID {
		http.Error(w, "cliente já cadastrado com este CNPJ", http.StatusConflict)
		return
	}
	if err := h.Repository.Salvar(h.DB, c); err != nil {
		http.Error(w, "Erro ao atualizar cliente", http.StatusInternalServerError)
		return
	}
	utils.JSON(w, http.StatusOK, c)
}

// Deletar trata DELETE /clientes/{id}
func (h *Handler) Deletar(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	if err := h.Repository.Deletar(h.DB, auth.EscritorioID(r.Context()), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Cliente não encontrado", http.StatusNotFound)
			return
		}
		http.Error(w, "Erro ao excluir cliente", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
