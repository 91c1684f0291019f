// Package caixapostal guarda as mensagens recebidas nas caixas postais dos
// portais do governo (e-CAC, DTE estadual, Simples Nacional).
package caixapostal

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

var origens = []string{"e-CAC", "DTE", "Simples", "DET", "Prefeitura", "Outros"}

// OrigemValida aceita a origem sem diferenciar maiúsculas e devolve a grafia canônica.
func OrigemValida(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, o := range origens {
		if strings.EqualFold(o, s) {
			return o, true
		}
	}
	return "", false
}

type Mensagem struct {
	gorm.Model
	EscritorioID uint   `gorm:"not null;index" json:"escritorioId"`
	ClienteID    uint   `gorm:"not null;index" json:"clienteId"`
	Origem       string `gorm:"size:30;not null" json:"origem"`
	// Protocolo identifica a mensagem no portal de origem; evita importar duas vezes.
	Protocolo  string     `gorm:"size:80;index" json:"protocolo,omitempty"`
	Assunto    string     `gorm:"size:255;not null" json:"assunto"`
	Conteudo   string     `gorm:"type:text" json:"conteudo"`
	Importante bool       `gorm:"not null;default:false" json:"importante"`
	RecebidaEm time.Time  `gorm:"not null;index" json:"recebidaEm"`
	LidaEm     *time.Time `json:"lidaEm"`
}

func (Mensagem) TableName() string { return "mensagens_caixa_postal" }

func (m Mensagem) Lida() bool { return m.LidaEm != nil }
