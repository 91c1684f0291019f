// Package declaracao controla a entrega das obrigações acessórias dos clientes.
package declaracao

import (
	"strings"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"gorm.io/gorm"
)

var tipos = []string{
	"DCTF", "DCTFWeb", "EFD-ICMS", "EFD-Contribuicoes", "EFD-Reinf", "DEFIS", "PGDAS-D",
	"DIRF", "ECF", "ECD", "RAIS", "DASN-SIMEI", "GIA", "DESTDA", "DIMOB", "DMED",
}

// TipoValido compara sem diferenciar maiúsculas e devolve a grafia canônica.
func TipoValido(s string) (string, bool) {
	for _, t := range tipos {
		if strings.EqualFold(t, strings.TrimSpace(s)) {
			return t, true
		}
	}
	return "", false
}

type Declaracao struct {
	gorm.Model
	EscritorioID uint       `gorm:"not null;index" json:"escritorioId"`
	ClienteID    uint       `gorm:"not null;uniqueIndex:idx_declaracao_cliente_tipo_comp" json:"clienteId"`
	Tipo         string     `gorm:"size:30;not null;uniqueIndex:idx_declaracao_cliente_tipo_comp" json:"tipo"`
	Competencia  string     `gorm:"size:7;not null;uniqueIndex:idx_declaracao_cliente_tipo_comp" json:"competencia"`
	Prazo        time.Time  `gorm:"not null;index" json:"prazo"`
	EntregueEm   *time.Time `json:"entregueEm"`
	Recibo       string     `gorm:"size:120" json:"recibo"`
	Observacao   string     `gorm:"type:text" json:"observacao"`

	Status fiscal.Prazo `gorm:"-" json:"status"`
}

func (d *Declaracao) Derivar(agora time.Time) {
	d.Status = fiscal.StatusPrazo(d.Prazo, d.EntregueEm, agora)
}
