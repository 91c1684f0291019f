package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const (
	CtxUserID       ctxKey = "usuarioID"
	CtxEscritorioID ctxKey = "escritorioID"
	CtxIsAdmin      ctxKey = "isAdmin"
)

func MiddlewareAutenticacao(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		h := r.Header.Get("Authorization")
		if h == "" || !strings.HasPrefix(h, "Bearer ") {
			http.Error(w, "Token ausente", http.StatusUnauthorized)
			return
		}
		raw := strings.TrimPrefix(h, "Bearer ")
		claims, err := ParseAndValidate(raw)
		if err != nil {
			http.Error(w, "Token inválido", http.StatusUnauthorized)
			return
		}
		ctx := ComIdentidade(r.Context(), claims.UserID, claims.EscritorioID, claims.IsAdmin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			http.Error(w, "Acesso restrito a administradores", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ComIdentidade injeta usuário, escritório e papel no contexto.
func ComIdentidade(ctx context.Context, userID, escritorioID uint, isAdmin bool) context.Context {
	ctx = context.WithValue(ctx, CtxUserID, userID)
	ctx = context.WithValue(ctx, CtxEscritorioID, escritorioID)
	return context.WithValue(ctx, CtxIsAdmin, isAdmin)
}

func UsuarioID(ctx context.Context) uint {
	v, _ := ctx.Value(CtxUserID).(uint)
	return v
}

// EscritorioID é o tenant do usuário autenticado; 0 fora de rotas autenticadas.
func EscritorioID(ctx context.Context) uint {
	v, _ := ctx.Value(CtxEscritorioID).(uint)
	return v
}

func IsAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(CtxIsAdmin).(bool)
	return v
}
