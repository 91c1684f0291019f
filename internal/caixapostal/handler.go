package caixapostal

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/auth"
	"github.com/KromaEnergia/painel-fiscal/internal/cliente"
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

type MensagemRequest struct {
	Origem     string `json:"origem"`
	Protocolo  string `json:"protocolo"`
	Assunto    string `json:"assunto"`
	Conteudo   string `json:"conteudo"`
	Importante bool   `json:"importante"`
	RecebidaEm string `json:"recebidaEm"`
}

func (req MensagemRequest) mensagem(escID, clienteID uint, agora time.Time) (Mensagem, error) {
	origem, ok := OrigemValida(req.Origem)
	if !ok {
		return Mensagem{}, errors.New("origem inválida. Use 'e-CAC', 'DTE', 'Simples', 'DET', 'Prefeitura' ou 'Outros'")
	}
	assunto := strings.TrimSpace(req.Assunto)
	if assunto == "" {
		return Mensagem{}, errors.New("o campo 'assunto' é obrigatório")
	}
	recebida := agora
	if req.RecebidaEm != "" {
		t, err := utils.ParseDataJSON(req.RecebidaEm)
		if err != nil {
			return Mensagem{}, errors.New("data inválida em 'recebidaEm'")
		}
		recebida = t
	}
	return Mensagem{
		EscritorioID: escID,
		ClienteID:    clienteID,
		Origem:       origem,
		Protocolo:    strings.TrimSpace(req.Protocolo),
		Assunto:      assunto,
		Conteudo:     req.Conteudo,
		Importante:   req.Importante,
		RecebidaEm:   recebida,
	}, nil
}

// decodificarLote aceita uma mensagem ou uma lista delas.
func decodificarLote(r io.Reader) ([]MensagemRequest, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var lote []MensagemRequest
		err := json.Unmarshal(raw, &lote)
		return lote, err
	}
	var uma MensagemRequest
	if err := json.Unmarshal(raw, &uma); err != nil {
		return nil, err
	}
	return []MensagemRequest{uma}, nil
}

// Importar trata POST /clientes/{id}/mensagens. Mensagens com protocolo já importado são ignoradas.
func (h *Handler) Importar(w http.ResponseWriter, r *http.Request) {
	escID := auth.EscritorioID(r.Context())
	clienteID, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	lote, err := decodificarLote(r.Body)
	if err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	if len(lote) == 0 {
		http.Error(w, "nenhuma mensagem informada", http.StatusBadRequest)
		return
	}
	if _, err := h.Clientes.BuscarPorID(h.DB, escID, clienteID); err != nil {
		http.Error(w, "Cliente não encontrado", http.StatusNotFound)
		return
	}

	agora := h.Agora()
	novas := make([]Mensagem, 0, len(lote))
	vistos := map[string]bool{}
	for _, req := range lote {
		m, err := req.mensagem(escID, clienteID, agora)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if m.Protocolo != "" {
			chave := m.Origem + "|" + m.Protocolo
			if vistos[chave] {
				continue
			}
			vistos[chave] = true
			existe, err := h.Repository.Existe(h.DB, clienteID, m.Origem, m.Protocolo)
			if err != nil {
				http.Error(w, "Erro ao verificar mensagens", http.StatusInternalServerError)
				return
			}
			if existe {
				continue
			}
		}
		novas = append(novas, m)
	}
	if err := h.Repository.Criar(h.DB, novas); err != nil {
		http.Error(w, "Erro ao salvar mensagens", http.StatusInternalServerError)
		return
	}
	utils.JSON(w, http.StatusCreated, map[string]interface{}{
		"importadas": novas,
		"ignoradas":  len(lote) - len(novas),
	})
}

func (h *Handler) listar(w http.ResponseWriter, r *http.Request, f Filtro) {
	if v := utils.QueryBool(r, "naoLidas"); v != nil {
		f.NaoLidas = *v
	}
	if v := utils.QueryBool(r, "importantes"); v != nil {
		f.Importantes = *v
	}
	ms, err := h.Repository.Listar(h.DB, auth.EscritorioID(r.Context()), f)
	if err != nil {
		http.Error(w, "Erro ao listar mensagens", http.StatusInternalServerError)
		return
	}
	utils.JSON(w, http.StatusOK, ms)
}

// Listar trata GET /mensagens?naoLidas=true&importantes=true&clienteId=
func (h *Handler) Listar(w http.ResponseWriter, r *http.Request) {
	h.listar(w, r, Filtro{ClienteID: utils.QueryUint(r, "clienteId")})
}

// ListarPorCliente trata GET /clientes/{id}/mensagens
func (h *Handler) ListarPorCliente(w http.ResponseWriter, r *http.Request) {
	clienteID, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	if _, err := h.Clientes.BuscarPorID(h.DB, auth.EscritorioID(r.Context()), clienteID); err != nil {
		http.Error(w, "Cliente não encontrado", http.StatusNotFound)
		return
	}
	h.listar(w, r, Filtro{ClienteID: clienteID})
}

// BuscarPorID trata GET /mensagens/{id}
func (h *Handler) BuscarPorID(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	m, err := h.Repository.BuscarPorID(h.DB, auth.EscritorioID(r.Context()), id)
	if err != nil {
		http.Error(w, "Mensagem não encontrada", http.StatusNotFound)
		return
	}
	utils.JSON(w, http.StatusOK, m)
}

// MarcarLeitura trata PATCH /mensagens/{id}/leitura. Corpo opcional {"lida": false} desmarca.
func (h *Handler) MarcarLeitura(w http.ResponseWriter, r *http.Request) {
	escID := auth.EscritorioID(r.Context())
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	payload := struct {
		Lida *bool `json:"lida"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	var lidaEm *time.Time
	if payload.Lida == nil || *payload.Lida {
		agora := h.Agora()
		lidaEm = &agora
	}
	if err := h.Repository.MarcarLeitura(h.DB, escID, id, lidaEm); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Mensagem não encontrada", http.StatusNotFound)
			return
		}
		http.Error(w, "Erro ao atualizar mensagem", http.StatusInternalServerError)
		return
	}
	m, err := h.Repository.BuscarPorID(h.DB, escID, id)
	if err != nil {
		http.Error(w, "Mensagem não encontrada", http.StatusNotFound)
		return
	}
	utils.JSON(w, http.StatusOK, m)
}

// Deletar trata DELETE /mensagens/{id}
func (h *Handler) Deletar(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	if err := h.Repository.Deletar(h.DB, auth.EscritorioID(r.Context()), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Mensagem não encontrada", http.StatusNotFound)
			return
		}
		http.Error(w, "Erro ao excluir mensagem", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
