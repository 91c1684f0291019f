package declaracao

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/auth"
	"github.com/KromaEnergia/painel-fiscal/internal/cliente"
	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"github.com/KromaEnergia/painel-fiscal/internal/utils"
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
	declaracoes map[uint]*Declaracao
	nextID      uint
}

func (f *fakeRepo) Salvar(_ *gorm.DB, d *Declaracao) error {
	if d.ID == 0 {
		f.nextID++
		d.ID = f.nextID
	}
	cp := *d
	f.declaracoes[d.ID] = &cp
	return nil
}

func (f *fakeRepo) BuscarPorID(_ *gorm.DB, escritorioID, id uint) (*Declaracao, error) {
	d, ok := f.declaracoes[id]
	if !ok || d.EscritorioID != escritorioID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeRepo) BuscarExistente(_ *gorm.DB, clienteID uint, tipo, competencia string) (*Declaracao, error) {
	for _, d := range f.declaracoes {
		if d.ClienteID == clienteID && d.Tipo == tipo && d.Competencia == competencia {
			cp := *d
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) Listar(_ *gorm.DB, escritorioID uint, fl Filtro) ([]Declaracao, error) {
	var out []Declaracao
	for id := uint(1); id <= f.nextID; id++ {
		d, ok := f.declaracoes[id]
		if !ok || d.EscritorioID != escritorioID {
			continue
		}
		if (fl.ClienteID != 0 && d.ClienteID != fl.ClienteID) || (fl.Tipo != "" && d.Tipo != fl.Tipo) {
			continue
		}
		if fl.Abertas && d.EntregueEm != nil {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeRepo) RegistrarEntrega(_ *gorm.DB, escritorioID, id uint, entregueEm *time.Time, recibo string) error {
	d, ok := f.declaracoes[id]
	if !ok || d.EscritorioID != escritorioID {
		return gorm.ErrRecordNotFound
	}
	d.EntregueEm = entregueEm
	d.Recibo = recibo
	return nil
}

func (f *fakeRepo) Deletar(_ *gorm.DB, escritorioID, id uint) error {
	if _, err := f.BuscarPorID(nil, escritorioID, id); err != nil {
		return err
	}
	delete(f.declaracoes, id)
	return nil
}

var agora = time.Date(2025, 5, 2, 15, 0, 0, 0, utils.Fuso)

func novoHandler() (*Handler, *fakeRepo) {
	repo := &fakeRepo{declaracoes: map[uint]*Declaracao{}}
	return &Handler{
		Repository: repo,
		Clientes:   fakeClientes{1: 7},
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

func TestTipoValido(t *testing.T) {
	tipo, ok := TipoValido(" dctfweb ")
	assert.True(t, ok)
	assert.Equal(t, "DCTFWeb", tipo)
	_, ok = TipoValido("IRPF")
	assert.False(t, ok)
}

func TestCriarEEntregarDeclaracao(t *testing.T) {
	h, _ := novoHandler()
	vars := map[string]string{"id": "1"}

	w := httptest.NewRecorder()
	h.Criar(w, requisicao(http.MethodPost, "/clientes/1/declaracoes",
		`{"tipo":"pgdas-d","competencia":"2025-03","prazo":"2025-04-20"}`, 7, vars))
	require.Equal(t, http.StatusCreated, w.Code)
	var d Declaracao
	require.NoError(t, json.NewDecoder(w.Body).Decode(&d))
	assert.Equal(t, "PGDAS-D", d.Tipo)
	assert.Equal(t, fiscal.PrazoAtrasado, d.Status)

	w = httptest.NewRecorder()
	h.Criar(w, requisicao(http.MethodPost, "/clientes/1/declaracoes",
		`{"tipo":"PGDAS-D","competencia":"03/2025","prazo":"2025-04-20"}`, 7, vars))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	h.RegistrarEntrega(w, requisicao(http.MethodPatch, "/declaracoes/1/entrega",
		`{"recibo":"12.34.56"}`, 7, map[string]string{"id": "1"}))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&d))
	assert.Equal(t, fiscal.PrazoConcluido, d.Status)
	assert.Equal(t, "12.34.56", d.Recibo)
	require.NotNil(t, d.EntregueEm)
	assert.True(t, agora.Equal(*d.EntregueEm))

	w = httptest.NewRecorder()
	h.RegistrarEntrega(w, requisicao(http.MethodPatch, "/declaracoes/1/entrega",
		`{"desfazer":true}`, 7, map[string]string{"id": "1"}))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&d))
	assert.Nil(t, d.EntregueEm)
	assert.Empty(t, d.Recibo)
}

func TestCriarDeclaracao_Validacao(t *testing.T) {
	h, _ := novoHandler()
	for _, body := range []string{
		`{"tipo":"IRPF","competencia":"2025-03","prazo":"2025-04-20"}`,
		`{"tipo":"DCTF","competencia":"2025-3","prazo":"2025-04-20"}`,
		`{"tipo":"DCTF","competencia":"2025-03"}`,
		`{"tipo":"DCTF","competencia":"2025-03","prazo":"2025-04-20","entregueEm":"ontem"}`,
	} {
		w := httptest.NewRecorder()
		h.Criar(w, requisicao(http.MethodPost, "/clientes/1/declaracoes", body, 7, map[string]string{"id": "1"}))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestListarDeclaracoes(t *testing.T) {
	h, repo := novoHandler()
	entregue := time.Date(2025, 4, 10, 0, 0, 0, 0, utils.Fuso)
	for _, d := range []Declaracao{
		{EscritorioID: 7, ClienteID: 1, Tipo: "DCTFWeb", Competencia: "2025-03", Prazo: time.Date(2025, 4, 15, 0, 0, 0, 0, utils.Fuso)},
		{EscritorioID: 7, ClienteID: 1, Tipo: "PGDAS-D", Competencia: "2025-03", Prazo: time.Date(2025, 4, 20, 0, 0, 0, 0, utils.Fuso), EntregueEm: &entregue},
		{EscritorioID: 7, ClienteID: 1, Tipo: "PGDAS-D", Competencia: "2025-04", Prazo: time.Date(2025, 5, 20, 0, 0, 0, 0, utils.Fuso)},
		{EscritorioID: 9, ClienteID: 5, Tipo: "PGDAS-D", Competencia: "2025-04", Prazo: time.Date(2025, 5, 20, 0, 0, 0, 0, utils.Fuso)},
	} {
		d := d
		require.NoError(t, repo.Salvar(nil, &d))
	}

	listar := func(q string) []Declaracao {
		w := httptest.NewRecorder()
		h.Listar(w, requisicao(http.MethodGet, "/declaracoes"+q, "", 7, nil))
		require.Equal(t, http.StatusOK, w.Code)
		var ds []Declaracao
		require.NoError(t, json.NewDecoder(w.Body).Decode(&ds))
		return ds
	}
	assert.Len(t, listar(""), 3)
	assert.Len(t, listar("?tipo=pgdas-d"), 2)
	assert.Len(t, listar("?status=atrasado"), 1)
	assert.Len(t, listar("?status=pendente&tipo=PGDAS-D"), 1)
	assert.Len(t, listar("?status=concluido"), 1)

	w := httptest.NewRecorder()
	h.Listar(w, requisicao(http.MethodGet, "/declaracoes?tipo=xyz", "", 7, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
