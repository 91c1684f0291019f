package parcelamento

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/auth"
	"github.com/KromaEnergia/painel-fiscal/internal/cliente"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeClientes map[uint]uint

func (f fakeClientes) BuscarPorID(_ *gorm.DB, escritorioID, id uint) (*cliente.Cliente, error) {
	if esc, ok := f[id]; ok && esc == escritorioID {
		c := &cliente.Cliente{EscritorioID: esc}
		c.ID = id
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeRepo struct {
	itens     map[uint]*Parcelamento
	nextID    uint
	nextParID uint
}

func (f *fakeRepo) copia(p *Parcelamento) *Parcelamento {
	cp := *p
	cp.Parcelas = append([]Parcela(nil), p.Parcelas...)
	return &cp
}

func (f *fakeRepo) Criar(_ *gorm.DB, p *Parcelamento) error {
	f.nextID++
	p.ID = f.nextID
	for i := range p.Parcelas {
		f.nextParID++
		p.Parcelas[i].ID = f.nextParID
		p.Parcelas[i].ParcelamentoID = p.ID
	}
	f.itens[p.ID] = f.copia(p)
	return nil
}

func (f *fakeRepo) BuscarPorID(_ *gorm.DB, escritorioID, id uint) (*Parcelamento, error) {
	p, ok := f.itens[id]
	if !ok || p.EscritorioID != escritorioID {
		return nil, gorm.ErrRecordNotFound
	}
	return f.copia(p), nil
}

func (f *fakeRepo) Listar(_ *gorm.DB, escritorioID uint, fl Filtro) ([]Parcelamento, error) {
	var out []Parcelamento
	for id := uint(1); id <= f.nextID; id++ {
		p, ok := f.itens[id]
		if !ok || p.EscritorioID != escritorioID {
			continue
		}
		if fl.ClienteID != 0 && p.ClienteID != fl.ClienteID {
			continue
		}
		if fl.Situacao != "" && p.Situacao != fl.Situacao {
			continue
		}
		out = append(out, *f.copia(p))
	}
	return out, nil
}

func (f *fakeRepo) AtualizarCabecalho(_ *gorm.DB, p *Parcelamento) error {
	atual := f.itens[p.ID]
	atual.Numero, atual.Modalidade, atual.Situacao = p.Numero, p.Modalidade, p.Situacao
	return nil
}

func (f *fakeRepo) localizar(parcelaID uint) (*Parcelamento, int) {
	for _, p := range f.itens {
		for i := range p.Parcelas {
			if p.Parcelas[i].ID == parcelaID {
				return p, i
			}
		}
	}
	return nil, -1
}

func (f *fakeRepo) BuscarParcela(_ *gorm.DB, escritorioID, parcelaID uint) (*Parcela, error) {
	p, i := f.localizar(parcelaID)
	if p == nil || p.EscritorioID != escritorioID {
		return nil, gorm.ErrRecordNotFound
	}
	pc := p.Parcelas[i]
	return &pc, nil
}

func (f *fakeRepo) AtualizarStatusParcela(_ *gorm.DB, parcelaID uint, status string, dataPagamento time.Time) (*Parcela, error) {
	p, i := f.localizar(parcelaID)
	if p == nil {
		return nil, gorm.ErrRecordNotFound
	}
	p.Parcelas[i].Status = status
	p.Parcelas[i].DataPagamento = nil
	if status == ParcelaPaga {
		p.Parcelas[i].DataPagamento = &dataPagamento
	}
	pagas, pendentes := 0, 0
	for _, pc := range p.Parcelas {
		switch pc.Status {
		case ParcelaPaga:
			pagas++
		case ParcelaPendente:
			pendentes++
		}
	}
	if Quitavel(pagas, pendentes) && p.Situacao == SituacaoAtivo {
		p.Situacao = SituacaoQuitado
	}
	if !Quitavel(pagas, pendentes) && p.Situacao == SituacaoQuitado {
		p.Situacao = SituacaoAtivo
	}
	pc := p.Parcelas[i]
	return &pc, nil
}

func (f *fakeRepo) Deletar(_ *gorm.DB, escritorioID, id uint) error {
	if _, err := f.BuscarPorID(nil, escritorioID, id); err != nil {
		return err
	}
	delete(f.itens, id)
	return nil
}

var agora = data(2025, 4, 25)

func novoHandler() (*Handler, *fakeRepo) {
	repo := &fakeRepo{itens: map[uint]*Parcelamento{}}
	return &Handler{
		Repository: repo,
		Clientes:   fakeClientes{1: 7, 2: 8},
		Agora:      func() time.Time { return agora },
	}, repo
}

func requisicao(method, path, body string, escritorioID uint, vars map[string]string) *http.Request {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if vars != nil {
		r = mux.SetURLVars(r, vars)
	}
	return r.WithContext(auth.ComIdentidade(r.Context(), 1, escritorioID, false))
}

func criar(t *testing.T, h *Handler, body string) Parcelamento {
	t.Helper()
	w := httptest.NewRecorder()
	h.Criar(w, requisicao(http.MethodPost, "/clientes/1/parcelamentos", body, 7, map[string]string{"id": "1"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p Parcelamento
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	return p
}

func TestCriarParcelamento(t *testing.T) {
	h, _ := novoHandler()
	p := criar(t, h, `{"orgao":"Federal","numero":"123","modalidade":"Simplificado","valorTotal":1000,"qtdParcelas":3,"dataInicio":"2025-03-31"}`)
	assert.Equal(t, SituacaoAtivo, p.Situacao)
	require.Len(t, p.Parcelas, 3)
	assert.Equal(t, 333.34, p.Parcelas[2].Valor)
	assert.Equal(t, StatusAtrasado, p.Status)
	assert.Equal(t, 1, p.ParcelasAtrasadas)

	vars := map[string]string{"id": "1"}
	for _, body := range []string{
		`{"orgao":"xyz","valorTotal":10,"qtdParcelas":1,"dataInicio":"2025-05-01"}`,
		`{"orgao":"federal","valorTotal":0,"qtdParcelas":1,"dataInicio":"2025-05-01"}`,
		`{"orgao":"federal","valorTotal":10,"qtdParcelas":0,"dataInicio":"2025-05-01"}`,
		`{"orgao":"federal","valorTotal":10,"qtdParcelas":1}`,
		`{`,
	} {
		w := httptest.NewRecorder()
		h.Criar(w, requisicao(http.MethodPost, "/clientes/1/parcelamentos", body, 7, vars))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}

	w := httptest.NewRecorder()
	h.Criar(w, requisicao(http.MethodPost, "/clientes/2/parcelamentos", `{"orgao":"federal","valorTotal":10,"qtdParcelas":1,"dataInicio":"2025-05-01"}`, 7, map[string]string{"id": "2"}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusParcelaQuitaParcelamento(t *testing.T) {
	h, repo := novoHandler()
	p := criar(t, h, `{"orgao":"estadual","valorTotal":200,"qtdParcelas":2,"dataInicio":"2025-05-10"}`)

	patch := func(pid uint, body string, esc uint) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		vars := map[string]string{"pid": strconv.FormatUint(uint64(pid), 10)}
		h.AtualizarStatusParcela(w, requisicao(http.MethodPatch, "/parcelas/x/status", body, esc, vars))
		return w
	}

	w := patch(p.Parcelas[0].ID, `{"status":"Pago","dataPagamento":"2025-04-20"}`, 7)
	require.Equal(t, http.StatusOK, w.Code)
	var pc Parcela
	require.NoError(t, json.NewDecoder(w.Body).Decode(&pc))
	require.NotNil(t, pc.DataPagamento)
	assert.Equal(t, 20, pc.DataPagamento.Day())

	assert.Equal(t, http.StatusBadRequest, patch(p.Parcelas[0].ID, `{"status":"Pendente"}`, 7).Code)
	assert.Equal(t, http.StatusBadRequest, patch(p.Parcelas[1].ID, `{"status":"pago"}`, 7).Code)
	assert.Equal(t, http.StatusNotFound, patch(p.Parcelas[1].ID, `{"status":"Pago"}`, 8).Code)

	require.Equal(t, http.StatusOK, patch(p.Parcelas[1].ID, `{"status":"Pago"}`, 7).Code)
	assert.Equal(t, SituacaoQuitado, repo.itens[p.ID].Situacao)

	w = httptest.NewRecorder()
	h.BuscarPorID(w, requisicao(http.MethodGet, "/parcelamentos/1", "", 7, map[string]string{"id": "1"}))
	require.Equal(t, http.StatusOK, w.Code)
	var got Parcelamento
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, StatusQuitado, got.Status)
	assert.Equal(t, 2, got.ParcelasPagas)
}

func TestListarAtualizarDeletar(t *testing.T) {
	h, _ := novoHandler()
	criar(t, h, `{"orgao":"federal","valorTotal":100,"qtdParcelas":2,"dataInicio":"2025-01-10"}`)
	criar(t, h, `{"orgao":"estadual","valorTotal":100,"qtdParcelas":2,"dataInicio":"2025-06-10"}`)

	listar := func(q string) []Parcelamento {
		w := httptest.NewRecorder()
		h.Listar(w, requisicao(http.MethodGet, "/parcelamentos"+q, "", 7, nil))
		require.Equal(t, http.StatusOK, w.Code)
		var ps []Parcelamento
		require.NoError(t, json.NewDecoder(w.Body).Decode(&ps))
		return ps
	}
	assert.Len(t, listar(""), 2)
	assert.Len(t, listar("?status=atrasado"), 1)
	assert.Len(t, listar("?status=em_dia"), 1)

	w := httptest.NewRecorder()
	h.Listar(w, requisicao(http.MethodGet, "/parcelamentos?situacao=foo", "", 7, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.Atualizar(w, requisicao(http.MethodPut, "/parcelamentos/1", `{"situacao":"rescindido","numero":"999"}`, 7, map[string]string{"id": "1"}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, listar("?situacao=rescindido"), 1)

	w = httptest.NewRecorder()
	h.Atualizar(w, requisicao(http.MethodPut, "/parcelamentos/1", `{"situacao":"cancelado"}`, 7, map[string]string{"id": "1"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.Deletar(w, requisicao(http.MethodDelete, "/parcelamentos/2", "", 8, map[string]string{"id": "2"}))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.Deletar(w, requisicao(http.MethodDelete, "/parcelamentos/2", "", 7, map[string]string{"id": "2"}))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, listar(""), 1)
}
