// Package notificacao envia alertas do painel para um webhook externo.
package notificacao

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Tipo string

const (
	CertidaoPositiva Tipo = "certidao_positiva"
	CertidaoVencendo Tipo = "certidao_vencendo"
	ConsultaErro     Tipo = "consulta_erro"
)

// Alerta é o corpo enviado ao webhook.
type Alerta struct {
	Tipo         Tipo                   `json:"tipo"`
	EscritorioID uint                   `json:"escritorioId"`
	ClienteID    uint                   `json:"clienteId"`
	CNPJ         string                 `json:"cnpj,omitempty"`
	Orgao        string                 `json:"orgao,omitempty"`
	Mensagem     string                 `json:"mensagem"`
	Detalhes     map[string]interface{} `json:"detalhes,omitempty"`
	EnviadoEm    time.Time              `json:"enviadoEm"`
}

func (a Alerta) chave() string {
	return fmt.Sprintf("%s:%d:%d:%s", a.Tipo, a.EscritorioID, a.ClienteID, a.Orgao)
}

const (
	TimeoutPadrao  = 10 * time.Second
	CooldownPadrao = 12 * time.Hour
)

// Notificador posta alertas em JSON. Sem URL configurada, Enviar não faz nada.
// Alertas iguais dentro do cooldown são descartados.
type Notificador struct {
	url      string
	http     *http.Client
	logger   *zap.Logger
	cooldown time.Duration
	agora    func() time.Time

	mu      sync.Mutex
	enviado map[string]time.Time
}

func New(url string, logger *zap.Logger) *Notificador {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notificador{
		url:      url,
		http:     &http.Client{Timeout: TimeoutPadrao},
		logger:   logger,
		cooldown: CooldownPadrao,
		agora:    time.Now,
		enviado:  map[string]time.Time{},
	}
}

func (n *Notificador) Ativo() bool { return n != nil && n.url != "" }

func (n *Notificador) emCooldown(chave string, agora time.Time) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ultimo, ok := n.enviado[chave]; ok && agora.Sub(ultimo) < n.cooldown {
		return true
	}
	// chaves vencidas saem do mapa
	for k, t := range n.enviado {
		if agora.Sub(t) >= n.cooldown {
			delete(n.enviado, k)
		}
	}
	n.enviado[chave] = agora
	return false
}

func (n *Notificador) liberar(chave string) {
	n.mu.Lock()
	delete(n.enviado, chave)
	n.mu.Unlock()
}

func (n *Notificador) Enviar(ctx context.Context, a Alerta) error {
	if !n.Ativo() {
		return nil
	}
	agora := n.agora()
	if n.emCooldown(a.chave(), agora) {
		n.logger.Debug("alerta em cooldown", zap.String("tipo", string(a.Tipo)), zap.Uint("cliente_id", a.ClienteID))
		return nil
	}
	if a.EnviadoEm.IsZero() {
		a.EnviadoEm = agora
	}

	body, err := json.Marshal(a)
	if err != nil {
		n.liberar(a.chave())
		return fmt.Errorf("erro ao serializar alerta: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, TimeoutPadrao)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.liberar(a.chave())
		return fmt.Errorf("erro ao criar requisição: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Notification-Type", string(a.Tipo))

	resp, err := n.http.Do(req)
	if err != nil {
		n.liberar(a.chave())
		return fmt.Errorf("erro ao enviar webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		n.liberar(a.chave())
		return fmt.Errorf("webhook respondeu HTTP %d", resp.StatusCode)
	}
	n.logger.Info("alerta enviado",
		zap.String("tipo", string(a.Tipo)),
		zap.Uint("escritorio_id", a.EscritorioID),
		zap.Uint("cliente_id", a.ClienteID),
	)
	return nil
}
