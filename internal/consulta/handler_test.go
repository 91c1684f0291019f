package consulta

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KromaEnergia/painel-fiscal/internal/auth"
	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func novoHandler() (*Handler, *fakeConsultas, *fakeFila) {
	consultas := novoFakeConsultas()
	fila := &fakeFila{}
	h := &Handler{
		Repository: consultas,
		Clientes: fakeClientes{
			1: novoCliente(1, 7, "SP", "Campinas"),
			2: novoCliente(2, 7, "", ""),
			3: novoCliente(3, 8, "RJ", "Niterói"),
		},
		Fila: fila,
	}
	return h, consultas, fila
}

func requisicao(method, path, body string, escritorioID uint, vars map[string]string) *http.Request {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if vars != nil {
		r = mux.SetURLVars(r, vars)
	}
	return r.WithContext(auth.ComIdentidade(r.Context(), 42, escritorioID, false))
}

func TestCriarParaCliente_TodosOsOrgaos(t *testing.T) {
	h, consultas, fila := novoHandler()

	w := httptest.NewRecorder()
	h.CriarParaCliente(w, requisicao(http.MethodPost, "/clientes/1/consultas", "", 7, map[string]string{"id": "1"}))
	require.Equal(t, http.StatusAccepted, w.Code)

	var cs []Consulta
	require.NoError(t, json.NewDecoder(w.Body).Decode(&cs))
	require.Len(t, cs, len(fiscal.Orgaos))
	for _, c := range cs {
		assert.Equal(t, StatusPendente, c.Status)
		assert.Equal(t, uint(42), c.CriadoPor)
		assert.NotEmpty(t, c.ID)
	}
	assert.Len(t, fila.publicados(), len(fiscal.Orgaos))

	// repetir não duplica jobs abertos
	w = httptest.NewRecorder()
	h.CriarParaCliente(w, requisicao(http.MethodPost, "/clientes/1/consultas", `{"orgaos":["federal"]}`, 7, map[string]string{"id": "1"}))
	require.Equal(t, http.StatusAccepted, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&cs))
	require.Len(t, cs, 1)
	assert.Equal(t, fiscal.OrgaoFederal, cs[0].Orgao)
	assert.Len(t, fila.publicados(), len(fiscal.Orgaos))

	todas, _ := consultas.Listar(nil, 7, Filtro{})
	assert.Len(t, todas, len(fiscal.Orgaos))
}

func TestCriarParaCliente_SemUFIgnoraOrgaosLocais(t *testing.T) {
	h, _, _ := novoHandler()

	w := httptest.NewRecorder()
	h.CriarParaCliente(w, requisicao(http.MethodPost, "/clientes/2/consultas", `{}`, 7, map[string]string{"id": "2"}))
	require.Equal(t, http.StatusAccepted, w.Code)
	var cs []Consulta
	require.NoError(t, json.NewDecoder(w.Body).Decode(&cs))
	assert.Len(t, cs, 3)

	w = httptest.NewRecorder()
	h.CriarParaCliente(w, requisicao(http.MethodPost, "/clientes/2/consultas", `{"orgaos":["estadual"]}`, 7, map[string]string{"id": "2"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCriarParaCliente_Erros(t *testing.T) {
	h, _, _ := novoHandler()

	w := httptest.NewRecorder()
	h.CriarParaCliente(w, requisicao(http.MethodPost, "/clientes/3/consultas", "", 7, map[string]string{"id": "3"}))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.CriarParaCliente(w, requisicao(http.MethodPost, "/clientes/1/consultas", `{"orgaos":["netuno"]}`, 7, map[string]string{"id": "1"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.CriarParaCliente(w, requisicao(http.MethodPost, "/clientes/x/consultas", "", 7, map[string]string{"id": "x"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCriarLote(t *testing.T) {
	h, _, fila := novoHandler()

	w := httptest.NewRecorder()
	h.CriarLote(w, requisicao(http.MethodPost, "/consultas/lote", `{"orgaos":["federal","fgts"]}`, 7, nil))
	require.Equal(t, http.StatusAccepted, w.Code)

	var out struct {
		Criadas     []Consulta `json:"criadas"`
		EmAndamento []Consulta `json:"emAndamento"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Len(t, out.Criadas, 4)
	assert.Empty(t, out.EmAndamento)
	assert.Len(t, fila.publicados(), 4)

	w = httptest.NewRecorder()
	h.CriarLote(w, requisicao(http.MethodPost, "/consultas/lote", `{"clienteIds":[1],"orgaos":["federal","estadual"]}`, 7, nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Len(t, out.Criadas, 1)
	assert.Len(t, out.EmAndamento, 1)

	w = httptest.NewRecorder()
	h.CriarLote(w, requisicao(http.MethodPost, "/consultas/lote", `{"clienteIds":[3]}`, 7, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCriarLote_SemConsultasRespondeListasVazias(t *testing.T) {
	h, _, fila := novoHandler()

	w := httptest.NewRecorder()
	h.CriarLote(w, requisicao(http.MethodPost, "/consultas/lote", `{"clienteIds":[2],"orgaos":["estadual","municipal"]}`, 7, nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"criadas":[],"emAndamento":[]}`, w.Body.String())
	assert.Empty(t, fila.publicados())
}

func TestBuscarConsulta(t *testing.T) {
	h, consultas, _ := novoHandler()
	c := consultas.add(Consulta{EscritorioID: 7, ClienteID: 1, Orgao: fiscal.OrgaoFGTS, Status: StatusProcessando})

	w := httptest.NewRecorder()
	h.BuscarPorID(w, requisicao(http.MethodGet, "/consultas/"+c.ID, "", 7, map[string]string{"id": c.ID}))
	require.Equal(t, http.StatusOK, w.Code)
	var got Consulta
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, StatusProcessando, got.Status)

	w = httptest.NewRecorder()
	h.BuscarPorID(w, requisicao(http.MethodGet, "/consultas/"+c.ID, "", 8, map[string]string{"id": c.ID}))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.BuscarPorID(w, requisicao(http.MethodGet, "/consultas/123", "", 7, map[string]string{"id": "123"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListarConsultas(t *testing.T) {
	h, consultas, _ := novoHandler()
	consultas.add(Consulta{EscritorioID: 7, ClienteID: 1, Orgao: fiscal.OrgaoFGTS, Status: StatusPendente})
	consultas.add(Consulta{EscritorioID: 7, ClienteID: 1, Orgao: fiscal.OrgaoFederal, Status: StatusConcluida})
	consultas.add(Consulta{EscritorioID: 7, ClienteID: 2, Orgao: fiscal.OrgaoFederal, Status: StatusProcessando})

	w := httptest.NewRecorder()
	h.Listar(w, requisicao(http.MethodGet, "/consultas?status=pendente,processando&clienteId=1", "", 7, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var cs []Consulta
	require.NoError(t, json.NewDecoder(w.Body).Decode(&cs))
	require.Len(t, cs, 1)
	assert.Equal(t, fiscal.OrgaoFGTS, cs[0].Orgao)

	w = httptest.NewRecorder()
	h.Listar(w, requisicao(http.MethodGet, "/consultas?status=cancelada", "", 7, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
