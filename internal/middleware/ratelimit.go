// Package middleware reúne os middlewares HTTP comuns a todas as rotas.
package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limitador guarda um token bucket por chave e descarta as chaves ociosas.
type Limitador struct {
	mu       sync.Mutex
	entradas map[string]*entrada
	rps      rate.Limit
	burst    int
	ociosa   time.Duration
	agora    func() time.Time
}

type entrada struct {
	lim   *rate.Limiter
	visto time.Time
}

func NovoLimitador(rps float64, burst int) *Limitador {
	if burst < 1 {
		burst = 1
	}
	return &Limitador{
		entradas: make(map[string]*entrada),
		rps:      rate.Limit(rps),
		burst:    burst,
		ociosa:   15 * time.Minute,
		agora:    time.Now,
	}
}

func (l *Limitador) limiter(chave string) *rate.Limiter {
	agora := l.agora()
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entradas[chave]; ok {
		e.visto = agora
		return e.lim
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	l.entradas[chave] = &entrada{lim: lim, visto: agora}
	return lim
}

// Reservar consome um token da chave. Quando não há token devolve false e o tempo de espera.
func (l *Limitador) Reservar(chave string) (bool, time.Duration) {
	res := l.limiter(chave).ReserveN(l.agora(), 1)
	if !res.OK() {
		return false, time.Second
	}
	espera := res.DelayFrom(l.agora())
	if espera > 0 {
		res.CancelAt(l.agora())
		return false, espera
	}
	return true, 0
}

// Limpar remove as chaves sem uso há mais que o tempo ocioso.
func (l *Limitador) Limpar() {
	limite := l.agora().Add(-l.ociosa)
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, e := range l.entradas {
		if e.visto.Before(limite) {
			delete(l.entradas, k)
		}
	}
}

func (l *Limitador) tamanho() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entradas)
}

// IniciarLimpeza roda Limpar periodicamente até o contexto ser cancelado.
func (l *Limitador) IniciarLimpeza(ctx context.Context, intervalo time.Duration) {
	if intervalo <= 0 {
		return
	}
	t := time.NewTicker(intervalo)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Limpar()
			}
		}
	}()
}

// ChaveCliente identifica quem faz a requisição pelo primeiro IP do
// X-Forwarded-For, quando confiável, ou pelo RemoteAddr.
func ChaveCliente(confiarXFF bool) func(r *http.Request) string {
	return func(r *http.Request) string {
		if confiarXFF {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
					return ip
				}
			}
		}
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "desconhecido"
	}
}

// RateLimit responde 429 com Retry-After quando a chave esgota o bucket.
func RateLimit(l *Limitador, chave func(r *http.Request) string) func(http.Handler) http.Handler {
	if chave == nil {
		chave = ChaveCliente(false)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, espera := l.Reservar(chave(r))
			if !ok {
				segundos := int(math.Ceil(espera.Seconds()))
				if segundos < 1 {
					segundos = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(segundos))
				http.Error(w, "Muitas requisições. Tente novamente em instantes.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
