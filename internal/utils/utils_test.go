package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidarCNPJ(t *testing.T) {
	assert.True(t, ValidarCNPJ("11.222.333/0001-81"))
	assert.True(t, ValidarCNPJ("11222333000181"))
	assert.False(t, ValidarCNPJ("11.222.333/0001-82"))
	assert.False(t, ValidarCNPJ("00000000000000"))
	assert.False(t, ValidarCNPJ("1122233300018"))
}

func TestNormalizarEFormatarCNPJ(t *testing.T) {
	d, err := NormalizarCNPJ(" 11.222.333/0001-81 ")
	require.NoError(t, err)
	assert.Equal(t, "11222333000181", d)
	assert.Equal(t, "11.222.333/0001-81", FormatarCNPJ(d))

	_, err = NormalizarCNPJ("abc")
	assert.ErrorIs(t, err, ErrCNPJInvalido)
}

func TestSenha(t *testing.T) {
	hash, err := HashSenha("segredo123")
	require.NoError(t, err)
	assert.True(t, VerificarSenha(hash, "segredo123"))
	assert.False(t, VerificarSenha(hash, "outra"))

	tmp, err := GerarSenhaTemporaria(0)
	require.NoError(t, err)
	assert.Len(t, tmp, TamanhoSenhaTemporaria)
	assert.NotContainsf(t, tmp, "0", "caractere ambíguo em %q", tmp)

	longa, err := GerarSenhaTemporaria(20)
	require.NoError(t, err)
	assert.Len(t, longa, 20)
	for _, c := range longa {
		assert.Contains(t, alfabetoSenha, string(c))
	}
}

func TestIDDaRota(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/clientes/42", nil)
	r = mux.SetURLVars(r, map[string]string{"id": "42"})
	id, err := IDDaRota(r, "id")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	r = mux.SetURLVars(r, map[string]string{"id": "0"})
	_, err = IDDaRota(r, "id")
	assert.ErrorIs(t, err, ErrIDInvalido)
}

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?clienteId=7&ativo=true&status=pendente,%20atrasado", nil)
	assert.Equal(t, uint(7), QueryUint(r, "clienteId"))
	assert.Equal(t, uint(0), QueryUint(r, "outro"))
	require.NotNil(t, QueryBool(r, "ativo"))
	assert.True(t, *QueryBool(r, "ativo"))
	assert.Nil(t, QueryBool(r, "naoLidas"))
	assert.Equal(t, []string{"pendente", "atrasado"}, QueryLista(r, "status"))
}

func TestParseDataJSON(t *testing.T) {
	d, err := ParseDataJSON("2025-03-12")
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 3, 12, 0, 0, 0, 0, Fuso).Equal(d))

	d, err = ParseDataJSON("2025-03-12T10:00:00Z")
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC).Equal(d))

	_, err = ParseDataJSON("12/03/2025")
	assert.Error(t, err)
}
