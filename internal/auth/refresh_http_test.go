package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/utils/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type estadoUsuario struct{ ativo, admin bool }

type fakeTitulares map[uint]estadoUsuario

func (f fakeTitulares) EstadoSessao(_ *gorm.DB, userID uint) (bool, bool, error) {
	e, ok := f[userID]
	if !ok {
		return false, false, gorm.ErrRecordNotFound
	}
	return e.ativo, e.admin, nil
}

type relogio struct{ t time.Time }

func (r *relogio) agora() time.Time { return r.t }

func novasSessoes(t *testing.T) (*Sessoes, fakeTitulares, *relogio, *gorm.DB) {
	t.Helper()
	configurarTeste(t)
	db := dbtest.Abrir(t, &RefreshToken{})
	tit := fakeTitulares{7: {ativo: true, admin: true}}
	rel := &relogio{t: time.Now()}
	return &Sessoes{DB: db, Usuarios: tit, Agora: rel.agora}, tit, rel, db
}

func cookieRT(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == RefreshCookie && c.Value != "" {
			return c.Value
		}
	}
	t.Fatalf("resposta sem cookie %s", RefreshCookie)
	return ""
}

func login(t *testing.T, s *Sessoes) string {
	t.Helper()
	rec := httptest.NewRecorder()
	access, err := s.IssueTokensOnLogin(rec, 7, 3, true)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	return cookieRT(t, rec)
}

func chamar(h func(http.ResponseWriter, *http.Request), path, raw string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if raw != "" {
		req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: raw})
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func abertos(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&RefreshToken{}).Where("revoked_at IS NULL").Count(&n).Error)
	return n
}

func TestRefresh_RotacionaToken(t *testing.T) {
	s, _, _, db := novasSessoes(t)
	raw1 := login(t, s)

	rec := chamar(s.Refresh, "/auth/refresh", raw1)
	require.Equal(t, http.StatusOK, rec.Code)
	raw2 := cookieRT(t, rec)
	assert.NotEqual(t, raw1, raw2)
	assert.Contains(t, rec.Body.String(), `"token_type":"Bearer"`)
	assert.Equal(t, int64(1), abertos(t, db))

	var atual RefreshToken
	require.NoError(t, db.Where("hash = ?", hashRaw(raw2)).First(&atual).Error)
	var anterior RefreshToken
	require.NoError(t, db.Where("hash = ?", hashRaw(raw1)).First(&anterior).Error)
	assert.Equal(t, anterior.FamilyID, atual.FamilyID)
	assert.NotNil(t, anterior.RevokedAt)
}

func TestRefresh_ReusoDerrubaFamilia(t *testing.T) {
	s, _, _, db := novasSessoes(t)
	raw1 := login(t, s)

	rec := chamar(s.Refresh, "/auth/refresh", raw1)
	require.Equal(t, http.StatusOK, rec.Code)
	raw2 := cookieRT(t, rec)

	rec = chamar(s.Refresh, "/auth/refresh", raw1)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, int64(0), abertos(t, db))

	rec = chamar(s.Refresh, "/auth/refresh", raw2)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_Expirado(t *testing.T) {
	s, _, rel, _ := novasSessoes(t)
	raw := login(t, s)

	rel.t = rel.t.Add(RefreshTTL + time.Minute)
	rec := chamar(s.Refresh, "/auth/refresh", raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")
}

func TestRefresh_SemCookieOuDesconhecido(t *testing.T) {
	s, _, _, _ := novasSessoes(t)

	assert.Equal(t, http.StatusUnauthorized, chamar(s.Refresh, "/auth/refresh", "").Code)
	assert.Equal(t, http.StatusUnauthorized, chamar(s.Refresh, "/auth/refresh", "nao-existe").Code)
}

func TestLogout_RevogaToken(t *testing.T) {
	s, _, _, db := novasSessoes(t)
	raw := login(t, s)

	rec := chamar(s.Logout, "/auth/logout", raw)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(0), abertos(t, db))

	assert.Equal(t, http.StatusUnauthorized, chamar(s.Refresh, "/auth/refresh", raw).Code)
}

func TestRefresh_UsuarioRemovidoOuInativo(t *testing.T) {
	t.Run("removido", func(t *testing.T) {
		s, tit, _, db := novasSessoes(t)
		raw := login(t, s)
		delete(tit, 7)

		assert.Equal(t, http.StatusUnauthorized, chamar(s.Refresh, "/auth/refresh", raw).Code)
		assert.Equal(t, int64(0), abertos(t, db))
	})
	t.Run("inativo", func(t *testing.T) {
		s, tit, _, db := novasSessoes(t)
		raw := login(t, s)
		tit[7] = estadoUsuario{ativo: false, admin: true}

		assert.Equal(t, http.StatusUnauthorized, chamar(s.Refresh, "/auth/refresh", raw).Code)
		assert.Equal(t, int64(0), abertos(t, db))
	})
}

func TestRefresh_UsaPapelAtual(t *testing.T) {
	s, tit, _, db := novasSessoes(t)
	raw := login(t, s)
	tit[7] = estadoUsuario{ativo: true, admin: false}

	rec := chamar(s.Refresh, "/auth/refresh", raw)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	c, err := ParseAndValidate(body.AccessToken)
	require.NoError(t, err)
	assert.False(t, c.IsAdmin)
	assert.Equal(t, uint(3), c.EscritorioID)

	var novo RefreshToken
	require.NoError(t, db.Where("hash = ?", hashRaw(cookieRT(t, rec))).First(&novo).Error)
	assert.False(t, novo.IsAdmin)
}

func TestRevogarSessoes(t *testing.T) {
	s, _, _, db := novasSessoes(t)
	raw1 := login(t, s)
	_ = login(t, s)
	require.Equal(t, int64(2), abertos(t, db))

	require.NoError(t, s.RevogarSessoes(7))
	assert.Equal(t, int64(0), abertos(t, db))
	assert.Equal(t, http.StatusUnauthorized, chamar(s.Refresh, "/auth/refresh", raw1).Code)
}
