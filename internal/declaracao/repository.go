package declaracao

import (
	"time"

	"gorm.io/gorm"
)

type Filtro struct {
	ClienteID uint
	Tipo      string
	Abertas   bool
}

type Repository interface {
	Salvar(db *gorm.DB, d *Declaracao) error
	BuscarPorID(db *gorm.DB, escritorioID, id uint) (*Declaracao, error)
	BuscarExistente(db *gorm.DB, clienteID uint, tipo, competencia string) (*Declaracao, error)
	Listar(db *gorm.DB, escritorioID uint, f Filtro) ([]Declaracao, error)
	RegistrarEntrega(db *gorm.DB, escritorioID, id uint, entregueEm *time.Time, recibo string) error
	Deletar(db *gorm.DB, escritorioID, id uint) error
}

type repositoryImpl struct{}

func NewRepository() Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) Salvar(db *gorm.DB, d *Declaracao) error {
	return db.Save(d).Error
}

func (r *repositoryImpl) BuscarPorID(db *gorm.DB, escritorioID, id uint) (*Declaracao, error) {
	var d Declaracao
	if err := db.Where("escritorio_id = ?", escritorioID).First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repositoryImpl) BuscarExistente(db *gorm.DB, clienteID uint, tipo, competencia string) (*Declaracao, error) {
	var d Declaracao
	err := db.Where("cliente_id = ? AND tipo = ? AND competencia = ?", clienteID, tipo, competencia).First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repositoryImpl) Listar(db *gorm.DB, escritorioID uint, f Filtro) ([]Declaracao, error) {
	q := db.Where("escritorio_id = ?", escritorioID)
	if f.ClienteID != 0 {
		q = q.Where("cliente_id = ?", f.ClienteID)
	}
	if f.Tipo != "" {
		q = q.Where("tipo = ?", f.Tipo)
	}
	if f.Abertas {
		q = q.Where("entregue_em IS NULL")
	}
	var ds []Declaracao
	err := q.Order("prazo ASC, id ASC").Find(&ds).Error
	return ds, err
}

func (r *repositoryImpl) RegistrarEntrega(db *gorm.DB, escritorioID, id uint, entregueEm *time.Time, recibo string) error {
	res := db.Model(&Declaracao{}).
		Where("escritorio_id = ? AND id = ?", escritorioID, id).
		Updates(map[string]interface{}{"entregue_em": entregueEm, "recibo": recibo})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) Deletar(db *gorm.DB, escritorioID, id uint) error {
	res := db.Unscoped().Where("escritorio_id = ?", escritorioID).Delete(&Declaracao{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
