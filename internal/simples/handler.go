package simples

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/auth"
	"github.com/KromaEnergia/painel-fiscal/internal/cliente"
	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"github.com/KromaEnergia/painel-fiscal/internal/utils"

	"gorm.io/gorm"
)

type Clientes interface {
	BuscarPorID(db *gorm.DB, escritorioID, id uint) (*cliente.Cliente, error)
	Listar(db *gorm.DB, escritorioID uint, f cliente.Filtro) ([]cliente.Cliente, error)
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

type FaturamentoRequest struct {
	Competencia string  `json:"competencia"`
	Valor       float64 `json:"valor"`
}

// referencia lê ?referencia=AAAA-MM; sem o parâmetro usa o mês corrente.
func (h *Handler) referencia(r *http.Request) (time.Time, error) {
	if s := r.URL.Query().Get("referencia"); s != "" {
		return fiscal.ParseCompetencia(s, utils.Fuso)
	}
	return h.Agora().In(utils.Fuso), nil
}

func (h *Handler) apurar(escID, clienteID uint, ref time.Time) (Apuracao, error) {
	inicio, fim := Periodo(ref)
	fats, err := h.Repository.Listar(h.DB, escID, clienteID, inicio, fim)
	if err != nil {
		return Apuracao{}, err
	}
	return Apurar(clienteID, fats, ref), nil
}

// Resumo trata GET /clientes/{id}/simples?referencia=2025-05
func (h *Handler) Resumo(w http.ResponseWriter, r *http.Request) {
	escID := auth.EscritorioID(r.Context())
	clienteID, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	ref, err := h.referencia(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := h.Clientes.BuscarPorID(h.DB, escID, clienteID)
	if err != nil {
		http.Error(w, "Cliente não encontrado", http.StatusNotFound)
		return
	}
	a, err := h.apurar(escID, clienteID, ref)
	if err != nil {
		http.Error(w, "Erro ao calcular RBT12", http.StatusInternalServerError)
		return
	}
	a.RazaoSocial = c.RazaoSocial
	utils.JSON(w, http.StatusOK, a)
}

// SalvarFaturamentos trata PUT /clientes/{id}/simples/faturamentos com uma lista
// de {competencia, valor}. Competências já informadas têm o valor substituído.
func (h *Handler) SalvarFaturamentos(w http.ResponseWriter, r *http.Request) {
	escID := auth.EscritorioID(r.Context())
	clienteID, err := utils.IDDaRota(r, "id")
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	var req []FaturamentoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON inválido: envie uma lista de {competencia, valor}", http.StatusBadRequest)
		return
	}
	if len(req) == 0 {
		http.Error(w, "nenhum faturamento informado", http.StatusBadRequest)
		return
	}
	c, err := h.Clientes.BuscarPorID(h.DB, escID, clienteID)
	if err != nil {
		http.Error(w, "Cliente não encontrado", http.StatusNotFound)
		return
	}

	porCompetencia := make(map[string]FaturamentoMensal, len(req))
	for _, item := range req {
		comp, err := fiscal.ParseCompetencia(item.Competencia, utils.Fuso)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if item.Valor < 0 {
			http.Error(w, "o faturamento não pode ser negativo", http.StatusBadRequest)
			return
		}
		chave := fiscal.Competencia(comp)
		porCompetencia[chave] = FaturamentoMensal{EscritorioID: escID, ClienteID: clienteID, Competencia: chave, Valor: item.Valor}
	}
	fats := make([]FaturamentoMensal, 0, len(porCompetencia))
	for _, f := range porCompetencia {
		fats = append(fats, f)
	}
	sort.Slice(fats, func(i, j int) bool { return fats[i].Competencia < fats[j].Competencia })

	if err := h.Repository.Salvar(h.DB, fats); err != nil {
		http.Error(w, "Erro ao salvar faturamentos", http.StatusInternalServerError)
		return
	}
	a, err := h.apurar(escID, clienteID, h.Agora().In(utils.Fuso))
	if err != nil {
		http.Error(w, "Erro ao calcular RBT12", http.StatusInternalServerError)
		return
	}
	a.RazaoSocial = c.RazaoSocial
	utils.JSON(w, http.StatusOK, a)
}

// Alertas apura todos os clientes ativos do Simples do escritório e devolve os que
// estão fora da faixa normal, do maior consumo para o menor.
func Alertas(db *gorm.DB, repo Repository, clientes Clientes, escID uint, ref time.Time) ([]Apuracao, error) {
	ativo := true
	cs, err := clientes.Listar(db, escID, cliente.Filtro{Ativo: &ativo})
	if err != nil {
		return nil, err
	}
	inicio, fim := Periodo(ref)
	fats, err := repo.Listar(db, escID, 0, inicio, fim)
	if err != nil {
		return nil, err
	}
	porCliente := make(map[uint][]FaturamentoMensal)
	for _, f := range fats {
		porCliente[f.ClienteID] = append(porCliente[f.ClienteID], f)
	}

	out := []Apuracao{}
	for _, c := range cs {
		if c.Regime != cliente.RegimeSimples {
			continue
		}
		a := Apurar(c.ID, porCliente[c.ID], ref)
		if a.Faixa == fiscal.FaixaNormal {
			continue
		}
		a.RazaoSocial = c.RazaoSocial
		a.Faturamentos = nil
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PercentualSublimite > out[j].PercentualSublimite })
	return out, nil
}

// Alertas trata GET /simples/alertas?referencia=2025-05
func (h *Handler) Alertas(w http.ResponseWriter, r *http.Request) {
	ref, err := h.referencia(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out, err := Alertas(h.DB, h.Repository, h.Clientes, auth.EscritorioID(r.Context()), ref)
	if err != nil {
		http.Error(w, "Erro ao apurar alertas do Simples", http.StatusInternalServerError)
		return
	}
	utils.JSON(w, http.StatusOK, out)
}
