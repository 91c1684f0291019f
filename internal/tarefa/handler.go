package tarefa

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/auth"
	"github.com/KromaEnergia/painel-fiscal/internal/cliente"
	"github.com/KromaEnergia/painel-fiscal/internal/usuario"
	"github.com/KromaEnergia/painel-fiscal/internal/utils"

	"gorm.io/gorm"
)

type Clientes interface {
	BuscarPorID(db *gorm.DB, escritorioID, id uint) (*cliente.Cliente, error)
}

type Usuarios interface {
	BuscarPorID(db *gorm.DB, escritorioID, id uint) (*usuario.Usuario, error)
	ListarPorEscritorio(db *gorm.DB, escritorioID uint) ([]usuario.Usuario, error)
}

type Handler struct {
	DB         *gorm.DB
	Repository Repository
	Clientes   Clientes
	Usuarios   Usuarios
	Agora      func() time.Time
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{
		DB:         db,
		Repository: NewRepository(),
		Clientes:   cliente.NewRepository(),
		Usuarios:   usuario.NewRepository(),
		Agora:      time.Now,
	}
}

// TarefaRequest é usado na criação e na edição. Campos ausentes na edição não mudam;
// clienteId/responsavelId/prazo com valor 0 ou "" são removidos.
type TarefaRequest struct {
	Titulo        *string `json:"titulo"`
	Descricao     *string `json:"descricao"`
	Prioridade    *string `json:"prioridade"`
	ClienteID     *uint   `json:"clienteId"`
	ResponsavelID *uint   `json:"responsavelId"`
	Prazo         *string `json:"prazo"`
}

func (h *Handler) aplicar(escID uint, req TarefaRequest, t *Tarefa) (int, error) {
	if req.Titulo != nil {
		t.Titulo = strings.TrimSpace(*req.Titulo)
	}
	if t.Titulo == "" {
		return http.StatusBadRequest, errors.New("o campo 'titulo' é obrigatório")
	}
	if req.Descricao != nil {
		t.Descricao = *req.Descricao
	}
	if req.Prioridade != nil {
		p := strings.ToLower(strings.TrimSpace(*req.Prioridade))
		if !prioridades[p] {
			return http.StatusBadRequest, errors.New("prioridade inválida. Use 'baixa', 'media' ou 'alta'")
		}
		t.Prioridade = p
	}
	if req.ClienteID != nil {
		t.ClienteID = nil
		if *req.ClienteID != 0 {
			if _, err := h.Clientes.BuscarPorID(h.DB, escID, *req.ClienteID); err != nil {
				return http.StatusNotFound, errors.New("Cliente não encontrado")
			}
			id := *req.ClienteID
			t.ClienteID = &id
		}
	}
	if req.ResponsavelID != nil {
		t.ResponsavelID = nil
		if *req.ResponsavelID != 0 {
			if _, err := h.Usuarios.BuscarPorID(h.DB, escID, *req.ResponsavelID); err != nil {
				return http.StatusNotFound, errors.New("Responsável não encontrado")
			}
			id := *req.ResponsavelID
			t.ResponsavelID = &id
		}
	}
	if req.Prazo != nil {
		t.Prazo = nil
		if *req.Prazo != "" {
			p, err := utils.ParseDataJSON(*req.Prazo)
			if err != nil {
				return http.StatusBadRequest, errors.New("data inválida em 'prazo'")
			}
			t.Prazo = &p
		}
	}
	return 0, nil
}

// Criar trata POST /tarefas
func (h *Handler) Criar(w http.ResponseWriter, r *http.Request) {
	escID := auth.EscritorioID(r.Context())
	var req TarefaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	t := Tarefa{EscritorioID: escID, Prioridade: PrioridadeMedia, Status: StatusPendente}
	if status, err := h.aplicar(escID, req, &t); err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	if err := h.Repository.Salvar(h.DB, &t); err != nil {
		http.Error(w, "Erro ao salvar tarefa", http.StatusInternalServerError)
		return
	}
	t.Derivar(h.Agora())
	utils.JSON(w, http.StatusCreated, t)
}

// Listar trata GET /tarefas?status=pendente,em_andamento&clienteId=&responsavelId=&atrasadas=true&minhas=true
func (h *Handler) Listar(w http.ResponseWriter, r *http.Request) {
	f := Filtro{
		ClienteID:     utils.QueryUint(r, "clienteId"),
		ResponsavelID: utils.QueryUint(r, "responsavelId"),
		Status:        utils.QueryLista(r, "status"),
	}
	for _, s := range f.Status {
		if !statusValidos[s] {
			http.Error(w, "status inválido: "+s, http.StatusBadRequest)
			return
		}
	}
	if minhas := utils.QueryBool(r, "minhas"); minhas != nil && *minhas {
		f.ResponsavelID = auth.UsuarioID(r.Context())
	}
	ts, err := h.Repository.Listar(h.DB, auth.EscritorioID(r.Context()), f)
	if err != nil {
		http.Error(w, "Erro ao listar tarefas", http.StatusInternalServerError)
		return
	}
	agora := h.Agora()
	soAtrasadas := utils.QueryBool(r, "atrasadas")
	out := make([]Tarefa, 0, len(ts))
	for _, t := range ts {
		t.Derivar(agora)
		if soAtrasadas != nil && t.Atrasada != *soAtrasadas {
			continue
		}
		out = append(out, t)
	}
	utils.JSON(w, http.StatusOK, out)
}

func (h *Handler) carregar(w http.ResponseWriter, r *http.Request) (*Tarefa, bool) {
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return nil, false
	}
	t, err := h.Repository.BuscarPorID(h.DB, auth.EscritorioID(r.Context()), id)
	if err != nil {
		http.Error(w, "Tarefa não encontrada", http.StatusNotFound)
		return nil, false
	}
	return t, true
}

// BuscarPorID trata GET /tarefas/{id}
func (h *Handler) BuscarPorID(w http.ResponseWriter, r *http.Request) {
	t, ok := h.carregar(w, r)
	if !ok {
		return
	}
	t.Derivar(h.Agora())
	utils.JSON(w, http.StatusOK, t)
}

// Atualizar trata PUT /tarefas/{id}. O status muda só pelo PATCH de status.
func (h *Handler) Atualizar(w http.ResponseWriter, r *http.Request) {
	t, ok := h.carregar(w, r)
	if !ok {
		return
	}
	var req TarefaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	if status, err := h.aplicar(t.EscritorioID, req, t); err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	if err := h.Repository.Salvar(h.DB, t); err != nil {
		http.Error(w, "Erro ao atualizar tarefa", http.StatusInternalServerError)
		return
	}
	t.Derivar(h.Agora())
	utils.JSON(w, http.StatusOK, t)
}

// AtualizarStatus trata PATCH /tarefas/{id}/status e registra a mudança como comentário do sistema.
func (h *Handler) AtualizarStatus(w http.ResponseWriter, r *http.Request) {
	t, ok := h.carregar(w, r)
	if !ok {
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "JSON mal formado", http.StatusBadRequest)
		return
	}
	novo := strings.ToLower(strings.TrimSpace(payload.Status))
	if !statusValidos[novo] {
		http.Error(w, "Status inválido. Use 'pendente', 'em_andamento' ou 'concluida'.", http.StatusBadRequest)
		return
	}
	agora := h.Agora()
	if novo == t.Status {
		t.Derivar(agora)
		utils.JSON(w, http.StatusOK, t)
		return
	}

	texto := fmt.Sprintf("Status alterado de %s para %s", rotuloStatus[t.Status], rotuloStatus[novo])
	if u, err := h.Usuarios.BuscarPorID(h.DB, t.EscritorioID, auth.UsuarioID(r.Context())); err == nil {
		texto += " por " + u.Nome
	}
	t.Status = novo
	t.ConcluidaEm = nil
	if novo == StatusConcluida {
		t.ConcluidaEm = &agora
	}
	c := ComentarioTarefa{TarefaID: t.ID, Texto: texto, System: true}
	if err := h.Repository.AtualizarStatus(h.DB, t, &c); err != nil {
		http.Error(w, "Erro ao atualizar status da tarefa", http.StatusInternalServerError)
		return
	}
	t.Derivar(agora)
	utils.JSON(w, http.StatusOK, t)
}

// Deletar trata DELETE /tarefas/{id}
func (h *Handler) Deletar(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	if err := h.Repository.Deletar(h.DB, auth.EscritorioID(r.Context()), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Tarefa não encontrada", http.StatusNotFound)
			return
		}
		http.Error(w, "Erro ao excluir tarefa", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) nomes(escID uint) map[uint]string {
	us, err := h.Usuarios.ListarPorEscritorio(h.DB, escID)
	if err != nil {
		return nil
	}
	out := make(map[uint]string, len(us))
	for _, u := range us {
		out[u.ID] = u.Nome
	}
	return out
}

// CriarComentario trata POST /tarefas/{id}/comentarios
func (h *Handler) CriarComentario(w http.ResponseWriter, r *http.Request) {
	t, ok := h.carregar(w, r)
	if !ok {
		return
	}
	var req struct {
		Texto string `json:"texto"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	texto := strings.TrimSpace(req.Texto)
	if texto == "" {
		http.Error(w, "O campo 'texto' é obrigatório", http.StatusBadRequest)
		return
	}
	userID := auth.UsuarioID(r.Context())
	if userID == 0 {
		http.Error(w, "Não autenticado", http.StatusUnauthorized)
		return
	}
	c := ComentarioTarefa{TarefaID: t.ID, UsuarioID: &userID, Texto: texto}
	if err := h.Repository.CriarComentario(h.DB, &c); err != nil {
		http.Error(w, "Erro ao criar comentário", http.StatusInternalServerError)
		return
	}
	utils.JSON(w, http.StatusCreated, toDTO(c, h.nomes(t.EscritorioID)))
}

// ListarComentarios trata GET /tarefas/{id}/comentarios
func (h *Handler) ListarComentarios(w http.ResponseWriter, r *http.Request) {
	t, ok := h.carregar(w, r)
	if !ok {
		return
	}
	cs, err := h.Repository.ListarComentarios(h.DB, t.ID)
	if err != nil {
		http.Error(w, "Erro ao listar comentários", http.StatusInternalServerError)
		return
	}
	utils.JSON(w, http.StatusOK, toDTOs(cs, h.nomes(t.EscritorioID)))
}

// RemoverComentario trata DELETE /tarefas/{id}/comentarios/{cid}.
// Só o autor ou um admin remove; comentários do sistema só admin.
func (h *Handler) RemoverComentario(w http.ResponseWriter, r *http.Request) {
	t, ok := h.carregar(w, r)
	if !ok {
		return
	}
	cid, err := utils.IDDaRota(r, "cid")
	if err != nil {
		http.Error(w, "ID do comentário inválido", http.StatusBadRequest)
		return
	}
	c, err := h.Repository.BuscarComentario(h.DB, t.ID, cid)
	if err != nil {
		http.Error(w, "Comentário não encontrado", http.StatusNotFound)
		return
	}
	autor := c.UsuarioID != nil && *c.UsuarioID == auth.UsuarioID(r.Context())
	if !auth.IsAdmin(r.Context()) && (c.System || !autor) {
		http.Error(w, "Acesso negado", http.StatusForbidden)
		return
	}
	if err := h.Repository.RemoverComentario(h.DB, t.ID, cid); err != nil {
		http.Error(w, "Erro ao remover comentário", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
