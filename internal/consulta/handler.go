package consulta

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/KromaEnergia/painel-fiscal/internal/auth"
	"github.com/KromaEnergia/painel-fiscal/internal/cliente"
	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"github.com/KromaEnergia/painel-fiscal/internal/infosimples"
	"github.com/KromaEnergia/painel-fiscal/internal/utils"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"gorm.io/gorm"
)

const maxClientesPorLote = 500

type Handler struct {
	DB         *gorm.DB
	Repository Repository
	Clientes   Clientes
	Fila       Publicador
	Logger     *zap.Logger
}

func NewHandler(db *gorm.DB, fila Publicador, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Repository: NewRepository(),
		Clientes:   cliente.NewRepository(),
		Fila:       fila,
		Logger:     logger,
	}
}

type ConsultaRequest struct {
	Orgaos []string `json:"orgaos"`
}

type LoteRequest struct {
	ClienteIDs []uint   `json:"clienteIds"`
	Orgaos     []string `json:"orgaos"`
}

// orgaosSolicitados valida a lista; vazia significa todos os órgãos.
func orgaosSolicitados(in []string) ([]fiscal.Orgao, bool, error) {
	if len(in) == 0 {
		return fiscal.Orgaos, false, nil
	}
	vistos := map[fiscal.Orgao]bool{}
	var out []fiscal.Orgao
	for _, s := range in {
		o := fiscal.Orgao(strings.ToLower(strings.TrimSpace(s)))
		if !o.Valido() {
			return nil, true, &erroValidacao{"órgão inválido: " + s}
		}
		if !vistos[o] {
			vistos[o] = true
			out = append(out, o)
		}
	}
	return out, true, nil
}

type erroValidacao struct{ msg string }

func (e *erroValidacao) Error() string { return e.msg }

// planejar devolve os jobs abertos reaproveitados e os novos a criar para o cliente.
// Órgãos sem serviço para o cliente (ex.: estadual sem UF) são ignorados quando a
// lista veio por omissão e rejeitados quando pedidos explicitamente.
func (h *Handler) planejar(cli *cliente.Cliente, orgaos []fiscal.Orgao, explicito bool, usuarioID uint) (abertas, novas []Consulta, err error) {
	params := infosimples.Parametros{CNPJ: cli.CNPJ, UF: cli.UF, Municipio: cli.Municipio}
	for _, o := range orgaos {
		if _, err := infosimples.Servico(o, params); err != nil {
			if explicito {
				return nil, nil, &erroValidacao{err.Error()}
			}
			continue
		}
		if c, err := h.Repository.BuscarAberta(h.DB, cli.ID, o); err == nil {
			abertas = append(abertas, *c)
			continue
		}
		novas = append(novas, Consulta{
			EscritorioID: cli.EscritorioID,
			ClienteID:    cli.ID,
			Orgao:        o,
			Status:       StatusPendente,
			CriadoPor:    usuarioID,
		})
	}
	return abertas, novas, nil
}

func (h *Handler) enfileirar(r *http.Request, novas []Consulta) error {
	if err := h.Repository.Criar(h.DB, novas); err != nil {
		return err
	}
	ids := make([]string, len(novas))
	for i, c := range novas {
		ids[i] = c.ID
	}
	if err := h.Fila.Publicar(r.Context(), ids...); err != nil && h.Logger != nil {
		// os jobs continuam pendentes e o agendador os republica
		h.Logger.Error("falha ao publicar consultas", zap.Strings("ids", ids), zap.Error(err))
	}
	return nil
}

// CriarParaCliente trata POST /clientes/{id}/consultas
func (h *Handler) CriarParaCliente(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	escID := auth.EscritorioID(ctx)
	clienteID, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	var req ConsultaRequest
	// corpo vazio consulta todos os órgãos
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	orgaos, explicito, err := orgaosSolicitados(req.Orgaos)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cli, err := h.Clientes.BuscarPorID(h.DB, escID, clienteID)
	if err != nil {
		http.Error(w, "Cliente não encontrado", http.StatusNotFound)
		return
	}
	abertas, novas, err := h.planejar(cli, orgaos, explicito, auth.UsuarioID(ctx))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.enfileirar(r, novas); err != nil {
		http.Error(w, "Erro ao criar consultas", http.StatusInternalServerError)
		return
	}
	resp := make([]Consulta, 0, len(novas)+len(abertas))
	utils.JSON(w, http.StatusAccepted, append(append(resp, novas...), abertas...))
}

// CriarLote trata POST /consultas/lote. Sem clienteIds, consulta todos os clientes ativos.
func (h *Handler) CriarLote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	escID := auth.EscritorioID(ctx)
	var req LoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	orgaos, _, err := orgaosSolicitados(req.Orgaos)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var clientes []cliente.Cliente
	if len(req.ClienteIDs) == 0 {
		ativo := true
		clientes, err = h.Clientes.Listar(h.DB, escID, cliente.Filtro{Ativo: &ativo})
		if err != nil {
			http.Error(w, "Erro ao listar clientes", http.StatusInternalServerError)
			return
		}
	} else {
		for _, id := range req.ClienteIDs {
			c, err := h.Clientes.BuscarPorID(h.DB, escID, id)
			if err != nil {
				http.Error(w, "Cliente não encontrado", http.StatusNotFound)
				return
			}
			clientes = append(clientes, *c)
		}
	}
	if len(clientes) > maxClientesPorLote {
		http.Error(w, "lote excede o limite de clientes", http.StatusBadRequest)
		return
	}

	todasAbertas, todasNovas := []Consulta{}, []Consulta{}
	for i := range clientes {
		// em lote, órgão sem serviço para um cliente é ignorado
		abertas, novas, _ := h.planejar(&clientes[i], orgaos, false, auth.UsuarioID(ctx))
		todasAbertas = append(todasAbertas, abertas...)
		todasNovas = append(todasNovas, novas...)
	}
	if err := h.enfileirar(r, todasNovas); err != nil {
		http.Error(w, "Erro ao criar consultas", http.StatusInternalServerError)
		return
	}
	utils.JSON(w, http.StatusAccepted, map[string]interface{}{
		"criadas":     todasNovas,
		"emAndamento": todasAbertas,
	})
}

// BuscarPorID trata GET /consultas/{id}, alvo do polling do front-end.
func (h *Handler) BuscarPorID(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	c, err := h.Repository.BuscarPorID(h.DB, auth.EscritorioID(r.Context()), id)
	if err != nil {
		http.Error(w, "Consulta não encontrada", http.StatusNotFound)
		return
	}
	utils.JSON(w, http.StatusOK, c)
}

// Listar trata GET /consultas?status=pendente,processando&clienteId=&limite=
func (h *Handler) Listar(w http.ResponseWriter, r *http.Request) {
	f := Filtro{ClienteID: utils.QueryUint(r, "clienteId"), Limite: int(utils.QueryUint(r, "limite"))}
	for _, s := range utils.QueryLista(r, "status") {
		st := Status(s)
		if !st.Valido() {
			http.Error(w, "status inválido: "+s, http.StatusBadRequest)
			return
		}
		f.Status = append(f.Status, st)
	}
	cs, err := h.Repository.Listar(h.DB, auth.EscritorioID(r.Context()), f)
	if err != nil {
		http.Error(w, "Erro ao listar consultas", http.StatusInternalServerError)
		return
	}
	utils.JSON(w, http.StatusOK, cs)
}
