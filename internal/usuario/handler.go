package usuario

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/KromaEnergia/painel-fiscal/internal/auth"
	"github.com/KromaEnergia/painel-fiscal/internal/utils"

	"gorm.io/gorm"
)

// EmissorTokens emite access + refresh token após login válido e derruba as
// sessões de um usuário que perdeu acesso ou mudou de papel.
type EmissorTokens interface {
	IssueTokensOnLogin(w http.ResponseWriter, userID, escritorioID uint, isAdmin bool) (string, error)
	RevogarSessoes(userID uint) error
}

type Handler struct {
	DB         *gorm.DB
	Repository Repository
	Tokens     EmissorTokens
}

func NewHandler(db *gorm.DB, tokens EmissorTokens) *Handler {
	return &Handler{DB: db, Repository: NewRepository(), Tokens: tokens}
}

type LoginRequest struct {
	Email string `json:"email"`
	Senha string `json:"senha"`
}

// CriadoResponse devolve a senha temporária uma única vez, quando gerada.
type CriadoResponse struct {
	*Usuario
	SenhaTemporaria string `json:"senhaTemporaria,omitempty"`
}

type usuarioRequest struct {
	Nome  string `json:"nome"`
	Email string `json:"email"`
	Senha string `json:"senha"`
	Papel string `json:"papel"`
	Ativo *bool  `json:"ativo"`
}

// Login trata POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "payload inválido", http.StatusBadRequest)
		return
	}

	u, err := h.Repository.BuscarPorEmail(h.DB, req.Email)
	if err != nil || !u.Ativo || !utils.VerificarSenha(u.Senha, req.Senha) {
		http.Error(w, "credenciais inválidas", http.StatusUnauthorized)
		return
	}

	access, err := h.Tokens.IssueTokensOnLogin(w, u.ID, u.EscritorioID, u.IsAdmin())
	if err != nil {
		http.Error(w, "erro ao gerar token", http.StatusInternalServerError)
		return
	}
	utils.JSON(w, http.StatusOK, auth.NewTokenResponse(access))
}

// Me trata GET /me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := h.Repository.BuscarPorID(h.DB, auth.EscritorioID(ctx), auth.UsuarioID(ctx))
	if err != nil {
		http.Error(w, "usuário não encontrado", http.StatusNotFound)
		return
	}
	utils.JSON(w, http.StatusOK, u)
}

// Listar trata GET /usuarios
func (h *Handler) Listar(w http.ResponseWriter, r *http.Request) {
	us, err := h.Repository.ListarPorEscritorio(h.DB, auth.EscritorioID(r.Context()))
	if err != nil {
		http.Error(w, "erro ao listar usuários", http.StatusInternalServerError)
		return
	}
	utils.JSON(w, http.StatusOK, us)
}

// Criar trata POST /usuarios (admin)
func (h *Handler) Criar(w http.ResponseWriter, r *http.Request) {
	var req usuarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "payload inválido", http.StatusBadRequest)
		return
	}
	var temporaria string
	if req.Senha == "" {
		s, err := utils.GerarSenhaTemporaria(utils.TamanhoSenhaTemporaria)
		if err != nil {
			http.Error(w, "erro ao gerar senha", http.StatusInternalServerError)
			return
		}
		req.Senha, temporaria = s, s
	}
	u, err := NovoUsuario(auth.EscritorioID(r.Context()), req.Nome, req.Email, req.Senha, req.Papel)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if emUso, err := h.Repository.EmailEmUso(h.DB, u.Email, 0); err != nil {
		http.Error(w, "erro ao salvar usuário", http.StatusInternalServerError)
		return
	} else if emUso {
		http.Error(w, ErrEmailDuplicado.Error(), http.StatusConflict)
		return
	}
	if err := h.Repository.Salvar(h.DB, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			http.Error(w, ErrEmailDuplicado.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "erro ao salvar usuário", http.StatusInternalServerError)
		return
	}
	utils.JSON(w, http.StatusCreated, CriadoResponse{Usuario: u, SenhaTemporaria: temporaria})
}

// Atualizar trata PUT /usuarios/{id}; colaborador só altera o próprio cadastro e não muda papel.
func (h *Handler) Atualizar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	if !auth.IsAdmin(ctx) && id != auth.UsuarioID(ctx) {
		http.Error(w, "acesso negado", http.StatusForbidden)
		return
	}

	var req usuarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "payload inválido", http.StatusBadRequest)
		return
	}

	u, err := h.Repository.BuscarPorID(h.DB, auth.EscritorioID(ctx), id)
	if err != nil {
		http.Error(w, "usuário não encontrado", http.StatusNotFound)
		return
	}
	papelAnterior, ativoAnterior := u.Papel, u.Ativo
	if req.Nome != "" {
		u.Nome = strings.TrimSpace(req.Nome)
	}
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" && email != u.Email {
		if !strings.Contains(email, "@") {
			http.Error(w, "e-mail inválido", http.StatusBadRequest)
			return
		}
		emUso, err := h.Repository.EmailEmUso(h.DB, email, u.ID)
		if err != nil {
			http.Error(w, "erro ao atualizar usuário", http.StatusInternalServerError)
			return
		}
		if emUso {
			http.Error(w, ErrEmailDuplicado.Error(), http.StatusConflict)
			return
		}
		u.Email = email
	}
	if req.Senha != "" {
		if len(req.Senha) < 8 {
			http.Error(w, "a senha deve ter ao menos 8 caracteres", http.StatusBadRequest)
			return
		}
		hash, err := utils.HashSenha(req.Senha)
		if err != nil {
			http.Error(w, "erro ao processar senha", http.StatusInternalServerError)
			return
		}
		u.Senha = hash
	}
	if auth.IsAdmin(ctx) {
		if req.Papel == PapelAdmin || req.Papel == PapelColaborador {
			u.Papel = req.Papel
		}
		if req.Ativo != nil && id != auth.UsuarioID(ctx) {
			u.Ativo = *req.Ativo
		}
	}

	if err := h.Repository.Salvar(h.DB, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			http.Error(w, ErrEmailDuplicado.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "erro ao atualizar usuário", http.StatusInternalServerError)
		return
	}
	if u.Papel != papelAnterior || (ativoAnterior && !u.Ativo) {
		if err := h.Tokens.RevogarSessoes(u.ID); err != nil {
			http.Error(w, "erro ao encerrar sessões do usuário", http.StatusInternalServerError)
			return
		}
	}
	utils.JSON(w, http.StatusOK, u)
}

// Deletar trata DELETE /usuarios/{id} (admin)
func (h *Handler) Deletar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	if id == auth.UsuarioID(ctx) {
		http.Error(w, "não é permitido excluir o próprio usuário", http.StatusBadRequest)
		return
	}
	if err := h.Repository.Deletar(h.DB, auth.EscritorioID(ctx), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "usuário não encontrado", http.StatusNotFound)
			return
		}
		http.Error(w, "erro ao excluir usuário", http.StatusInternalServerError)
		return
	}
	if err := h.Tokens.RevogarSessoes(id); err != nil {
		http.Error(w, "erro ao encerrar sessões do usuário", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NovoUsuario valida os campos e gera o hash da senha.
func NovoUsuario(escritorioID uint, nome, email, senha, papel string) (*Usuario, error) {
	nome = strings.TrimSpace(nome)
	email = strings.ToLower(strings.TrimSpace(email))
	if nome == "" || !strings.Contains(email, "@") {
		return nil, errors.New("nome e e-mail válidos são obrigatórios")
	}
	if len(senha) < 8 {
		return nil, errors.New("a senha deve ter ao menos 8 caracteres")
	}
	if papel == "" {
		papel = PapelColaborador
	}
	if papel != PapelAdmin && papel != PapelColaborador {
		return nil, errors.New("papel inválido")
	}
	hash, err := utils.HashSenha(senha)
	if err != nil {
		return nil, err
	}
	return &Usuario{
		EscritorioID: escritorioID,
		Nome:         nome,
		Email:        email,
		Senha:        hash,
		Papel:        papel,
		Ativo:        true,
	}, nil
}
