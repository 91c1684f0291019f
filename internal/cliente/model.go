package cliente

import "gorm.io/gorm"

const (
	RegimeSimples   = "simples"
	RegimePresumido = "presumido"
	RegimeReal      = "real"
	RegimeMEI       = "mei"
)

var regimes = map[string]bool{RegimeSimples: true, RegimePresumido: true, RegimeReal: true, RegimeMEI: true}

// Cliente é a empresa acompanhada pelo escritório. O CNPJ é único dentro do escritório.
type Cliente struct {
	gorm.Model
	EscritorioID       uint   `gorm:"not null;index;uniqueIndex:idx_cliente_escritorio_cnpj" json:"escritorioId"`
	RazaoSocial        string `gorm:"size:255;not null" json:"razaoSocial"`
	NomeFantasia       string `gorm:"size:255" json:"nomeFantasia"`
	CNPJ               string `gorm:"size:14;not null;uniqueIndex:idx_cliente_escritorio_cnpj" json:"cnpj"`
	UF                 string `gorm:"size:2" json:"uf"`
	Municipio          string `gorm:"size:120" json:"municipio"`
	InscricaoEstadual  string `gorm:"size:30" json:"inscricaoEstadual"`
	InscricaoMunicipal string `gorm:"size:30" json:"inscricaoMunicipal"`
	Regime             string `gorm:"size:20;not null;default:'simples'" json:"regime"`
	Ativo              bool   `gorm:"not null;default:true" json:"ativo"`
}
