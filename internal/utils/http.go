package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

var ErrIDInvalido = errors.New("ID inválido")

// IDDaRota lê um parâmetro numérico da rota do mux (ex.: {id}).
func IDDaRota(r *http.Request, nome string) (uint, error) {
	v, err := strconv.ParseUint(mux.Vars(r)[nome], 10, 64)
	if err != nil || v == 0 {
		return 0, ErrIDInvalido
	}
	return uint(v), nil
}

// QueryUint lê um filtro numérico opcional da query string (0 quando ausente).
func QueryUint(r *http.Request, nome string) uint {
	v, err := strconv.ParseUint(r.URL.Query().Get(nome), 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}

// QueryBool lê um filtro booleano opcional; nil quando ausente ou inválido.
func QueryBool(r *http.Request, nome string) *bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(nome))
	if err != nil {
		return nil
	}
	return &v
}

// QueryLista lê "a,b,c" como lista.
func QueryLista(r *http.Request, nome string) []string {
	raw := r.URL.Query().Get(nome)
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Fuso usado para datas sem hora (vencimentos, validades, competências).
var Fuso = carregarFuso()

func carregarFuso() *time.Location {
	if loc, err := time.LoadLocation("America/Sao_Paulo"); err == nil {
		return loc
	}
	return time.FixedZone("BRT", -3*60*60)
}

// ParseDataJSON aceita "2006-01-02" (meia-noite em Fuso) ou RFC3339 vindos do front-end.
func ParseDataJSON(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", s, Fuso)
}

// JSON escreve o corpo com Content-Type e status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
