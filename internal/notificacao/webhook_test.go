package notificacao

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnviar_SemURLNaoFazNada(t *testing.T) {
	n := New("", nil)
	assert.False(t, n.Ativo())
	assert.NoError(t, n.Enviar(context.Background(), Alerta{Tipo: ConsultaErro}))
}

func TestEnviar_PostaJSONComCooldown(t *testing.T) {
	var chamadas int32
	var recebido Alerta
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&chamadas, 1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, string(CertidaoPositiva), r.Header.Get("X-Notification-Type"))
		_ = json.NewDecoder(r.Body).Decode(&recebido)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	agora := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	n := New(srv.URL, nil)
	n.agora = func() time.Time { return agora }

	a := Alerta{Tipo: CertidaoPositiva, EscritorioID: 1, ClienteID: 2, Orgao: "federal", Mensagem: "positiva"}
	require.NoError(t, n.Enviar(context.Background(), a))
	assert.Equal(t, CertidaoPositiva, recebido.Tipo)
	assert.Equal(t, uint(2), recebido.ClienteID)
	assert.True(t, agora.Equal(recebido.EnviadoEm))

	require.NoError(t, n.Enviar(context.Background(), a))
	assert.Equal(t, int32(1), atomic.LoadInt32(&chamadas))

	// outro órgão não está em cooldown
	b := a
	b.Orgao = "fgts"
	require.NoError(t, n.Enviar(context.Background(), b))
	assert.Equal(t, int32(2), atomic.LoadInt32(&chamadas))

	agora = agora.Add(CooldownPadrao + time.Minute)
	require.NoError(t, n.Enviar(context.Background(), a))
	assert.Equal(t, int32(3), atomic.LoadInt32(&chamadas))
}

func TestEnviar_FalhaLiberaCooldown(t *testing.T) {
	var chamadas int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&chamadas, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(srv.URL, nil)
	a := Alerta{Tipo: ConsultaErro, ClienteID: 9}
	assert.Error(t, n.Enviar(context.Background(), a))
	assert.Error(t, n.Enviar(context.Background(), a))
	assert.Equal(t, int32(2), atomic.LoadInt32(&chamadas))
}

func TestEnviar_CooldownVencidoSaiDoMapa(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	agora := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	n := New(srv.URL, nil)
	n.agora = func() time.Time { return agora }

	for cliente := uint(1); cliente <= 50; cliente++ {
		require.NoError(t, n.Enviar(context.Background(), Alerta{Tipo: CertidaoVencendo, EscritorioID: 1, ClienteID: cliente}))
	}
	assert.Len(t, n.enviado, 50)

	agora = agora.Add(CooldownPadrao)
	require.NoError(t, n.Enviar(context.Background(), Alerta{Tipo: ConsultaErro, EscritorioID: 1, ClienteID: 99}))
	assert.Len(t, n.enviado, 1)
	assert.Contains(t, n.enviado, Alerta{Tipo: ConsultaErro, EscritorioID: 1, ClienteID: 99}.chave())
}
