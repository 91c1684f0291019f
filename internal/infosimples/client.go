// Package infosimples consulta certidões nos portais do governo através da API da InfoSimples.
package infosimples

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"github.com/KromaEnergia/painel-fiscal/internal/utils"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.infosimples.com/api/v2/consultas"

var (
	ErrTokenAusente    = errors.New("token da InfoSimples não configurado")
	ErrOrgaoSemServico = errors.New("órgão sem serviço de consulta configurado")
)

// Resposta é o envelope comum a todos os serviços.
type Resposta struct {
	Code         int                      `json:"code"`
	CodeMessage  string                   `json:"code_message"`
	Header       map[string]interface{}   `json:"header"`
	Data         []map[string]interface{} `json:"data"`
	DataCount    int                      `json:"data_count"`
	Errors       []string                 `json:"errors"`
	SiteReceipts []string                 `json:"site_receipts"`
}

func (r *Resposta) Resultado() Resultado { return MapearCodigo(r.Code) }

// Parametros identificam o contribuinte na consulta.
type Parametros struct {
	CNPJ              string
	UF                string
	Municipio         string
	InscricaoEstadual string
}

// Client chama a API com limite de requisições por segundo compartilhado por todos os workers.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRPS limita as chamadas; rps <= 0 desliga o limite.
func WithRPS(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func New(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(2), 2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Servico devolve o caminho do serviço da InfoSimples para o órgão.
func Servico(orgao fiscal.Orgao, p Parametros) (string, error) {
	switch orgao {
	case fiscal.OrgaoFederal:
		return "receita-federal/pgfn/nova", nil
	case fiscal.OrgaoFGTS:
		return "caixa/regularidade", nil
	case fiscal.OrgaoTrabalhista:
		return "tst/cndt", nil
	case fiscal.OrgaoEstadual:
		uf := strings.ToLower(strings.TrimSpace(p.UF))
		if len(uf) != 2 {
			return "", fmt.Errorf("%w: UF ausente para certidão estadual", ErrOrgaoSemServico)
		}
		return "sefaz/" + uf + "/certidao-debitos", nil
	case fiscal.OrgaoMunicipal:
		uf := strings.ToLower(strings.TrimSpace(p.UF))
		mun := slug(p.Municipio)
		if len(uf) != 2 || mun == "" {
			return "", fmt.Errorf("%w: UF e município são obrigatórios para certidão municipal", ErrOrgaoSemServico)
		}
		return "pref/" + uf + "/" + mun + "/cnd", nil
	}
	return "", ErrOrgaoSemServico
}

func slug(s string) string {
	t := semAcentos(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range t {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '\'':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteRune('-')
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Consultar executa a consulta. Erros de transporte e HTTP != 2xx voltam como error;
// códigos 6xx voltam na Resposta para o chamador mapear.
func (c *Client) Consultar(ctx context.Context, orgao fiscal.Orgao, p Parametros) (*Resposta, error) {
	if c.token == "" {
		return nil, ErrTokenAusente
	}
	servico, err := Servico(orgao, p)
	if err != nil {
		return nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	form := url.Values{}
	form.Set("token", c.token)
	form.Set("cnpj", utils.SomenteDigitos(p.CNPJ))
	form.Set("timeout", "300")
	if p.InscricaoEstadual != "" {
		form.Set("inscricao_estadual", p.InscricaoEstadual)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+servico, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("infosimples %s: %w", servico, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		corpo, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("infosimples %s: HTTP %d: %s", servico, resp.StatusCode, strings.TrimSpace(string(corpo)))
	}

	var out Resposta
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("infosimples %s: resposta inválida: %w", servico, err)
	}
	return &out, nil
}
