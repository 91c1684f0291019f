package fgts

import (
	"time"

	"gorm.io/gorm"
)

type Filtro struct {
	ClienteID uint
	// Abertas restringe a guias sem pagamento.
	Abertas bool
}

type Repository interface {
	Salvar(db *gorm.DB, g *GuiaFGTS) error
	BuscarPorID(db *gorm.DB, escritorioID, id uint) (*GuiaFGTS, error)
	BuscarPorCompetencia(db *gorm.DB, clienteID uint, competencia string) (*GuiaFGTS, error)
	Listar(db *gorm.DB, escritorioID uint, f Filtro) ([]GuiaFGTS, error)
	RegistrarPagamento(db *gorm.DB, escritorioID, id uint, pagoEm *time.Time) error
	Deletar(db *gorm.DB, escritorioID, id uint) error
}

type repositoryImpl struct{}

func NewRepository() Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) Salvar(db *gorm.DB, g *GuiaFGTS) error {
	return db.Save(g).Error
}

func (r *repositoryImpl) BuscarPorID(db *gorm.DB, escritorioID, id uint) (*GuiaFGTS, error) {
	var g GuiaFGTS
	if err := db.Where("escritorio_id = ?", escritorioID).First(&g, id).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *repositoryImpl) BuscarPorCompetencia(db *gorm.DB, clienteID uint, competencia string) (*GuiaFGTS, error) {
	var g GuiaFGTS
	if err := db.Where("cliente_id = ? AND competencia = ?", clienteID, competencia).First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *repositoryImpl) Listar(db *gorm.DB, escritorioID uint, f Filtro) ([]GuiaFGTS, error) {
	q := db.Where("escritorio_id = ?", escritorioID)
	if f.ClienteID != 0 {
		q = q.Where("cliente_id = ?", f.ClienteID)
	}
	if f.Abertas {
		q = q.Where("pago_em IS NULL")
	}
	var gs []GuiaFGTS
	err := q.Order("vencimento DESC, id DESC").Find(&gs).Error
	return gs, err
}

// RegistrarPagamento grava a data de pagamento; nil desfaz o pagamento.
func (r *repositoryImpl) RegistrarPagamento(db *gorm.DB, escritorioID, id uint, pagoEm *time.Time) error {
	res := db.Model(&GuiaFGTS{}).
		Where("escritorio_id = ? AND id = ?", escritorioID, id).
		Update("pago_em", pagoEm)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) Deletar(db *gorm.DB, escritorioID, id uint) error {
	res := db.Unscoped().Where("escritorio_id = ?", escritorioID).Delete(&GuiaFGTS{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
