package cnd

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

// Clientes é o que o handler precisa do cadastro de clientes.
type Clientes interface {
	BuscarPorID(db *gorm.DB, escritorioID, id uint) (*cliente.Cliente, error)
}

type Handler struct {
	DB         *gorm.DB
	Repository Repository
	Clientes   Clientes
	Janela     int
	Agora      func() time.Time
}

func NewHandler(db *gorm.DB, janela int) *Handler {
	return &Handler{
		DB:         db,
		Repository: NewRepository(),
		Clientes:   cliente.NewRepository(),
		Janela:     janela,
		Agora:      time.Now,
	}
}

type CertidaoRequest struct {
	Orgao          string `json:"orgao"`
	Situacao       string `json:"situacao"`
	Codigo         string `json:"codigo"`
	DataEmissao    string `json:"dataEmissao"`
	DataValidade   string `json:"dataValidade"`
	URLComprovante string `json:"urlComprovante"`
	Observacao     string `json:"observacao"`
}

func dataOpcional(campo, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := utils.ParseDataJSON(s)
	if err != nil {
		return nil, errors.New("data inválida em '" + campo + "'")
	}
	return &t, nil
}

// Aplicar valida o payload de uma certidão lançada manualmente.
func (req CertidaoRequest) Aplicar(c *Certidao) error {
	orgao := fiscal.Orgao(strings.ToLower(strings.TrimSpace(req.Orgao)))
	if !orgao.Valido() {
		return errors.New("órgão inválido. Use 'federal', 'estadual', 'fgts', 'municipal' ou 'trabalhista'")
	}
	situacao := fiscal.Situacao(strings.ToLower(strings.TrimSpace(req.Situacao)))
	if !situacao.Valida() {
		return errors.New("situação inválida")
	}
	emissao, err := dataOpcional("dataEmissao", req.DataEmissao)
	if err != nil {
		return err
	}
	validade, err := dataOpcional("dataValidade", req.DataValidade)
	if err != nil {
		return err
	}
	if emissao != nil && validade != nil && validade.Before(*emissao) {
		return errors.New("a validade não pode ser anterior à emissão")
	}

	c.Orgao = orgao
	c.Situacao = situacao
	c.Codigo = strings.TrimSpace(req.Codigo)
	c.DataEmissao = emissao
	c.DataValidade = validade
	c.URLComprovante = strings.TrimSpace(req.URLComprovante)
	c.Observacao = strings.TrimSpace(req.Observacao)
	c.Fonte = FonteManual
	return nil
}

func (h *Handler) derivar(cs []Certidao) {
	agora := h.Agora()
	for i := range cs {
		cs[i].Derivar(agora, h.Janela)
	}
}

// ListarPorCliente trata GET /clientes/{id}/certidoes
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
	cs, err := h.Repository.Listar(h.DB, escID, Filtro{ClienteID: clienteID})
	if err != nil {
		http.Error(w, "Erro ao listar certidões", http.StatusInternalServerError)
		return
	}
	h.derivar(cs)
	utils.JSON(w, http.StatusOK, cs)
}

// Criar trata POST /clientes/{id}/certidoes. Substitui a certidão atual do órgão.
func (h *Handler) Criar(w http.ResponseWriter, r *http.Request) {
	escID := auth.EscritorioID(r.Context())
	clienteID, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	var req CertidaoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	if _, err := h.Clientes.BuscarPorID(h.DB, escID, clienteID); err != nil {
		http.Error(w, "Cliente não encontrado", http.StatusNotFound)
		return
	}
	c := Certidao{EscritorioID: escID, ClienteID: clienteID}
	if err := req.Aplicar(&c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Repository.Substituir(h.DB, &c); err != nil {
		http.Error(w, "Erro ao salvar certidão", http.StatusInternalServerError)
		return
	}
	c.Derivar(h.Agora(), h.Janela)
	utils.JSON(w, http.StatusCreated, c)
}

// Listar trata GET /certidoes?status=a_vencer,vencida&orgao=&clienteId=
func (h *Handler) Listar(w http.ResponseWriter, r *http.Request) {
	f := Filtro{
		ClienteID: utils.QueryUint(r, "clienteId"),
		Orgao:     fiscal.Orgao(r.URL.Query().Get("orgao")),
	}
	if f.Orgao != "" && !f.Orgao.Valido() {
		http.Error(w, "órgão inválido", http.StatusBadRequest)
		return
	}
	cs, err := h.Repository.Listar(h.DB, auth.EscritorioID(r.Context()), f)
	if err != nil {
		http.Error(w, "Erro ao listar certidões", http.StatusInternalServerError)
		return
	}
	h.derivar(cs)

	status := utils.QueryLista(r, "status")
	if len(status) == 0 {
		utils.JSON(w, http.StatusOK, cs)
		return
	}
	aceitos := make(map[fiscal.Validade]bool, len(status))
	for _, s := range status {
		aceitos[fiscal.Validade(s)] = true
	}
	out := make([]Certidao, 0, len(cs))
	for _, c := range cs {
		if aceitos[c.Status] {
			out = append(out, c)
		}
	}
	utils.JSON(w, http.StatusOK, out)
}

// BuscarPorID trata GET /certidoes/{id}
func (h *Handler) BuscarPorID(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	c, err := h.Repository.BuscarPorID(h.DB, auth.EscritorioID(r.Context()), id)
	if err != nil {
		http.Error(w, "Certidão não encontrada", http.StatusNotFound)
		return
	}
	c.Derivar(h.Agora(), h.Janela)
	utils.JSON(w, http.StatusOK, c)
}

// Atualizar trata PUT /certidoes/{id}. O órgão não muda.
func (h *Handler) Atualizar(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	var req CertidaoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	c, err := h.Repository.BuscarPorID(h.DB, auth.EscritorioID(r.Context()), id)
	if err != nil {
		http.Error(w, "Certidão não encontrada", http.StatusNotFound)
		return
	}
	if req.Orgao == "" {
		req.Orgao = string(c.Orgao)
	}
	if fiscal.Orgao(strings.ToLower(req.Orgao)) != c.Orgao {
		http.Error(w, "o órgão da certidão não pode ser alterado", http.StatusBadRequest)
		return
	}
	if err := req.Aplicar(c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Repository.Salvar(h.DB, c); err != nil {
		http.Error(w, "Erro ao atualizar certidão", http.StatusInternalServerError)
		return
	}
	c.Derivar(h.Agora(), h.Janela)
	utils.JSON(w, http.StatusOK, c)
}

// Deletar trata DELETE /certidoes/{id}
func (h *Handler) Deletar(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	if err := h.Repository.Deletar(h.DB, auth.EscritorioID(r.Context()), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Certidão não encontrada", http.StatusNotFound)
			return
		}
		http.Error(w, "Erro ao excluir certidão", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
