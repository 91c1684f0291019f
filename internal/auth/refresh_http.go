package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RefreshTTL    = 30 * 24 * time.Hour
	RefreshCookie = "rt"
)

var ErrSessaoEncerrada = errors.New("usuário removido ou inativo")

// Titulares informa o estado atual do usuário dono de uma sessão.
type Titulares interface {
	EstadoSessao(db *gorm.DB, userID uint) (ativo, admin bool, err error)
}

// Sessoes emite e rotaciona refresh tokens guardados (em hash) no banco.
type Sessoes struct {
	DB           *gorm.DB
	Usuarios     Titulares
	CookieSecure bool
	Agora        func() time.Time
}

func NovasSessoes(db *gorm.DB, usuarios Titulares, cookieSecure bool) *Sessoes {
	return &Sessoes{DB: db, Usuarios: usuarios, CookieSecure: cookieSecure, Agora: time.Now}
}

func (s *Sessoes) agora() time.Time {
	if s.Agora != nil {
		return s.Agora()
	}
	return time.Now()
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func NewTokenResponse(access string) TokenResponse {
	return TokenResponse{AccessToken: access, TokenType: "Bearer", ExpiresIn: int(AccessTTL.Seconds())}
}

// --- Helpers ---

func genRaw() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashRaw(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(h[:])
}

// Em localhost precisa ser Secure=false; em produção (HTTPS) COOKIE_SECURE=true.
func (s *Sessoes) setRTCookie(w http.ResponseWriter, raw string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    raw,
		Path:     "/auth", // cobre /auth/refresh e /auth/logout
		HttpOnly: true,
		Secure:   s.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
}

func (s *Sessoes) clearRTCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     "/auth",
		HttpOnly: true,
		Secure:   s.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func (s *Sessoes) novoRefresh(w http.ResponseWriter, db *gorm.DB, userID, escritorioID uint, isAdmin bool, familyID string) error {
	raw, err := genRaw()
	if err != nil {
		return err
	}
	rt := RefreshToken{
		UserID:       userID,
		EscritorioID: escritorioID,
		FamilyID:     familyID,
		Hash:         hashRaw(raw),
		IsAdmin:      isAdmin,
		ExpiresAt:    s.agora().Add(RefreshTTL),
	}
	if err := db.Create(&rt).Error; err != nil {
		return err
	}
	s.setRTCookie(w, raw, rt.ExpiresAt)
	return nil
}

// --- Fluxo ---

// IssueTokensOnLogin é chamado pelo login após validar email/senha.
func (s *Sessoes) IssueTokensOnLogin(w http.ResponseWriter, userID, escritorioID uint, isAdmin bool) (string, error) {
	access, err := GenerateAccessToken(userID, escritorioID, isAdmin)
	if err != nil {
		return "", err
	}
	if err := s.novoRefresh(w, s.DB, userID, escritorioID, isAdmin, uuid.NewString()); err != nil {
		return "", err
	}
	return access, nil
}

// Refresh trata POST /auth/refresh
func (s *Sessoes) Refresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(RefreshCookie)
	if err != nil || c.Value == "" {
		http.Error(w, "no refresh", http.StatusUnauthorized)
		return
	}

	var cur RefreshToken
	if err := s.DB.Where("hash = ?", hashRaw(c.Value)).First(&cur).Error; err != nil {
		s.clearRTCookie(w)
		http.Error(w, "invalid refresh", http.StatusUnauthorized)
		return
	}
	now := s.agora()
	if cur.RevokedAt != nil {
		// reuso de token já rotacionado: derruba a família inteira
		_ = s.revogarFamilia(cur.FamilyID, now)
		s.clearRTCookie(w)
		http.Error(w, "revoked refresh", http.StatusUnauthorized)
		return
	}
	if now.After(cur.ExpiresAt) {
		s.clearRTCookie(w)
		http.Error(w, "expired refresh", http.StatusUnauthorized)
		return
	}

	var access string
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		ativo, admin, err := s.Usuarios.EstadoSessao(tx, cur.UserID)
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !ativo) {
			return ErrSessaoEncerrada
		}
		if err != nil {
			return err
		}
		res := tx.Model(&RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", cur.ID).
			Update("revoked_at", &now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("refresh já utilizado")
		}
		access, err = GenerateAccessToken(cur.UserID, cur.EscritorioID, admin)
		if err != nil {
			return err
		}
		return s.novoRefresh(w, tx, cur.UserID, cur.EscritorioID, admin, cur.FamilyID)
	})
	if errors.Is(err, ErrSessaoEncerrada) {
		_ = s.revogarFamilia(cur.FamilyID, now)
	}
	if err != nil {
		s.clearRTCookie(w)
		http.Error(w, "refresh inválido", http.StatusUnauthorized)
		return
	}

	utils.JSON(w, http.StatusOK, NewTokenResponse(access))
}

// Logout trata POST /auth/logout
func (s *Sessoes) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(RefreshCookie); err == nil && c.Value != "" {
		now := s.agora()
		_ = s.DB.Model(&RefreshToken{}).
			Where("hash = ? AND revoked_at IS NULL", hashRaw(c.Value)).
			Update("revoked_at", &now).Error
	}
	s.clearRTCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Sessoes) revogarFamilia(familyID string, agora time.Time) error {
	return s.DB.Model(&RefreshToken{}).
		Where("family_id = ? AND revoked_at IS NULL", familyID).
		Update("revoked_at", &agora).Error
}

// RevogarSessoes derruba todos os refresh tokens ativos do usuário. Chamado
// quando ele é removido, desativado ou muda de papel.
func (s *Sessoes) RevogarSessoes(userID uint) error {
	now := s.agora()
	return s.DB.Model(&RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", &now).Error
}
