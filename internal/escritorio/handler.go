package escritorio

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/KromaEnergia/painel-fiscal/internal/auth"
	"github.com/KromaEnergia/painel-fiscal/internal/usuario"
	"github.com/KromaEnergia/painel-fiscal/internal/utils"

	"gorm.io/gorm"
)

var ErrCNPJDuplicado = errors.New("já existe um escritório com este CNPJ")

type Handler struct {
	DB         *gorm.DB
	Repository Repository
	Usuarios   usuario.Repository
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{DB: db, Repository: NewRepository(), Usuarios: usuario.NewRepository()}
}

type CadastroRequest struct {
	Nome     string `json:"nome"`
	CNPJ     string `json:"cnpj"`
	Email    string `json:"email"`
	Telefone string `json:"telefone"`
	Admin    struct {
		Nome  string `json:"nome"`
		Email string `json:"email"`
		Senha string `json:"senha"`
	} `json:"admin"`
}

type CadastroResponse struct {
	Escritorio *Escritorio      `json:"escritorio"`
	Admin      *usuario.Usuario `json:"admin"`
}

// Cadastrar trata POST /escritorios: cria o escritório e o primeiro administrador.
func (h *Handler) Cadastrar(w http.ResponseWriter, r *http.Request) {
	var req CadastroRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "payload inválido", http.StatusBadRequest)
		return
	}
	cnpj, err := utils.NormalizarCNPJ(req.CNPJ)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Nome) == "" {
		http.Error(w, "o campo 'nome' é obrigatório", http.StatusBadRequest)
		return
	}

	esc := &Escritorio{
		Nome:     strings.TrimSpace(req.Nome),
		CNPJ:     cnpj,
		Email:    strings.TrimSpace(req.Email),
		Telefone: strings.TrimSpace(req.Telefone),
		Ativo:    true,
	}
	admin, err := usuario.NovoUsuario(0, req.Admin.Nome, req.Admin.Email, req.Admin.Senha, usuario.PapelAdmin)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		existe, err := h.Repository.ExisteCNPJ(tx, cnpj)
		if err != nil {
			return err
		}
		if existe {
			return ErrCNPJDuplicado
		}
		emUso, err := h.Usuarios.EmailEmUso(tx, admin.Email, 0)
		if err != nil {
			return err
		}
		if emUso {
			return usuario.ErrEmailDuplicado
		}
		if err := h.Repository.Salvar(tx, esc); err != nil {
			return err
		}
		admin.EscritorioID = esc.ID
		return h.Usuarios.Salvar(tx, admin)
	})
	switch {
	case errors.Is(err, ErrCNPJDuplicado), errors.Is(err, usuario.ErrEmailDuplicado):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, gorm.ErrDuplicatedKey):
		http.Error(w, "CNPJ ou e-mail já cadastrado", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "erro ao cadastrar escritório", http.StatusInternalServerError)
		return
	}

	utils.JSON(w, http.StatusCreated, CadastroResponse{Escritorio: esc, Admin: admin})
}

// Buscar trata GET /escritorio
func (h *Handler) Buscar(w http.ResponseWriter, r *http.Request) {
	e, err := h.Repository.BuscarPorID(h.DB, auth.EscritorioID(r.Context()))
	if err != nil {
		http.Error(w, "escritório não encontrado", http.StatusNotFound)
		return
	}
	utils.JSON(w, http.StatusOK, e)
}

// Atualizar trata PUT /escritorio (admin). O CNPJ não muda.
func (h *Handler) Atualizar(w http.ResponseWriter, r *http.Request) {
	var dados Escritorio
	if err := json.NewDecoder(r.Body).Decode(&dados); err != nil {
		http.Error(w, "payload inválido", http.StatusBadRequest)
		return
	}
	e, err := h.Repository.BuscarPorID(h.DB, auth.EscritorioID(r.Context()))
	if err != nil {
		http.Error(w, "escritório não encontrado", http.StatusNotFound)
		return
	}
	if n := strings.TrimSpace(dados.Nome); n != "" {
		e.Nome = n
	}
	e.Email = strings.TrimSpace(dados.Email)
	e.Telefone = strings.TrimSpace(dados.Telefone)

	if err := h.Repository.Salvar(h.DB, e); err != nil {
		http.Error(w, "erro ao atualizar escritório", http.StatusInternalServerError)
		return
	}
	utils.JSON(w, http.StatusOK, e)
}
