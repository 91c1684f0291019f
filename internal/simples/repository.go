package simples

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Salvar(db *gorm.DB, fats []FaturamentoMensal) error
	// Listar traz as competências entre inicio e fim, inclusive. clienteID 0 traz o escritório todo.
	Listar(db *gorm.DB, escritorioID, clienteID uint, inicio, fim string) ([]FaturamentoMensal, error)
}

type repositoryImpl struct{}

func NewRepository() Repository {
	return &repositoryImpl{}
}

// Salvar grava ou substitui o valor de cada competência.
func (r *repositoryImpl) Salvar(db *gorm.DB, fats []FaturamentoMensal) error {
	if len(fats) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cliente_id"}, {Name: "competencia"}},
		DoUpdates: clause.AssignmentColumns([]string{"valor", "updated_at", "deleted_at"}),
	}).Create(&fats).Error
}

func (r *repositoryImpl) Listar(db *gorm.DB, escritorioID, clienteID uint, inicio, fim string) ([]FaturamentoMensal, error) {
	q := db.Where("escritorio_id = ? AND competencia BETWEEN ? AND ?", escritorioID, inicio, fim)
	if clienteID != 0 {
		q = q.Where("cliente_id = ?", clienteID)
	}
	var fs []FaturamentoMensal
	err := q.Order("cliente_id ASC, competencia ASC").Find(&fs).Error
	return fs, err
}
