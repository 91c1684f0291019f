package escritorio

import "gorm.io/gorm"

// Escritorio é o tenant: um escritório contábil e sua carteira de clientes.
type Escritorio struct {
	gorm.Model
	Nome     string `gorm:"size:255;not null" json:"nome"`
	CNPJ     string `gorm:"size:14;not null;uniqueIndex" json:"cnpj"`
	Email    string `gorm:"size:255" json:"email"`
	Telefone string `gorm:"size:30" json:"telefone"`
	Ativo    bool   `gorm:"not null;default:true" json:"ativo"`
}
