package infosimples

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Certidao é o resultado normalizado de uma consulta bem-sucedida.
type Certidao struct {
	Situacao    fiscal.Situacao
	Codigo      string
	Emissao     time.Time
	Validade    time.Time
	Comprovante string
	Mensagem    string
}

var (
	camposTexto    = []string{"tipo", "tipo_certidao", "situacao", "certidao", "status", "resultado", "mensagem", "descricao", "observacao"}
	camposCodigo   = []string{"codigo_controle", "numero_certidao", "certidao_codigo", "codigo", "numero", "codigo_autenticidade"}
	camposEmissao  = []string{"emissao_data", "data_emissao", "emitida_em", "data_hora_emissao", "emissao", "datahora"}
	camposValidade = []string{"validade_data", "data_validade", "validade", "valida_ate", "validade_fim", "data_fim_validade"}
)

func semAcentos(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

func texto(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func primeiro(data map[string]interface{}, chaves []string) string {
	for _, k := range chaves {
		if v := strings.TrimSpace(texto(data[k])); v != "" {
			return v
		}
	}
	return ""
}

// ClassificarTexto lê o texto livre do portal. "Irregular" é testado antes de
// "regular" e "positiva com efeito" antes de "positiva".
func ClassificarTexto(s string) fiscal.Situacao {
	t := semAcentos(s)
	switch {
	case t == "":
		return fiscal.SituacaoIndisponivel
	case strings.Contains(t, "efeito de negativa"), strings.Contains(t, "efeitos de negativa"),
		strings.Contains(t, "positiva com efeito"):
		return fiscal.SituacaoPositivaEfeitoNegativa
	case strings.Contains(t, "irregular"), strings.Contains(t, "positiva"),
		strings.Contains(t, "nao foi possivel emitir"), strings.Contains(t, "insuficientes para emissao"):
		return fiscal.SituacaoPositiva
	case strings.Contains(t, "negativa"), strings.Contains(t, "regular"), strings.Contains(t, "nada consta"),
		strings.Contains(t, "nao constam"):
		return fiscal.SituacaoNegativa
	default:
		return fiscal.SituacaoIndisponivel
	}
}

// SituacaoDaCertidao classifica um item de "data". O booleano
// conseguiu_emitir_certidao_negativa, quando presente, prevalece sobre o texto.
func SituacaoDaCertidao(data map[string]interface{}) fiscal.Situacao {
	if v, ok := data["conseguiu_emitir_certidao_negativa"].(bool); ok {
		if !v {
			return fiscal.SituacaoPositiva
		}
		if s := ClassificarTexto(primeiro(data, camposTexto)); s == fiscal.SituacaoPositivaEfeitoNegativa {
			return s
		}
		return fiscal.SituacaoNegativa
	}
	for _, k := range camposTexto {
		if s := ClassificarTexto(texto(data[k])); s != fiscal.SituacaoIndisponivel {
			return s
		}
	}
	return fiscal.SituacaoIndisponivel
}

// Certidao extrai a certidão da resposta. Só faz sentido para Resultado Sucesso ou SemDados.
func (r *Resposta) Certidao() (*Certidao, error) {
	switch MapearCodigo(r.Code) {
	case SemDados:
		return &Certidao{
			Situacao:    fiscal.SituacaoPositiva,
			Mensagem:    r.CodeMessage,
			Comprovante: r.comprovante(),
		}, nil
	case Sucesso:
	default:
		return nil, fmt.Errorf("infosimples code %d: %s", r.Code, r.CodeMessage)
	}
	if len(r.Data) == 0 {
		return nil, fmt.Errorf("infosimples code %d sem dados", r.Code)
	}

	d := r.Data[0]
	c := &Certidao{
		Situacao:    SituacaoDaCertidao(d),
		Codigo:      primeiro(d, camposCodigo),
		Mensagem:    primeiro(d, []string{"mensagem", "observacao", "situacao"}),
		Comprovante: primeiro(d, []string{"site_receipt", "url_certidao"}),
	}
	if c.Comprovante == "" {
		c.Comprovante = r.comprovante()
	}
	if s := primeiro(d, camposEmissao); s != "" {
		if t, err := ParseData(s); err == nil {
			c.Emissao = t
		}
	}
	if s := primeiro(d, camposValidade); s != "" {
		if t, err := ParseData(s); err == nil {
			c.Validade = t
		}
	}
	// alguns portais só informam a validade no texto da certidão
	if c.Validade.IsZero() {
		n := semAcentos(primeiro(d, []string{"mensagem", "observacao", "certidao"}))
		if i := strings.Index(n, "valid"); i >= 0 {
			if t, err := ParseData(n[i:]); err == nil {
				c.Validade = t
			}
		}
	}
	return c, nil
}

func (r *Resposta) comprovante() string {
	if len(r.SiteReceipts) > 0 {
		return r.SiteReceipts[0]
	}
	return ""
}
