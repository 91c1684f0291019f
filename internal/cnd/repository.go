package cnd

import (
	"errors"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"gorm.io/gorm"
)

type Filtro struct {
	ClienteID uint
	Orgao     fiscal.Orgao
}

type Repository interface {
	Salvar(db *gorm.DB, c *Certidao) error
	Substituir(db *gorm.DB, c *Certidao) error
	BuscarPorID(db *gorm.DB, escritorioID, id uint) (*Certidao, error)
	Listar(db *gorm.DB, escritorioID uint, f Filtro) ([]Certidao, error)
	ListarValidadeAte(db *gorm.DB, limite time.Time) ([]Certidao, error)
	Deletar(db *gorm.DB, escritorioID, id uint) error
}

type repositoryImpl struct{}

func NewRepository() Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) Salvar(db *gorm.DB, c *Certidao) error {
	return db.Save(c).Error
}

// Substituir grava c como a certidão atual do par cliente/órgão, reaproveitando
// a linha existente para manter o índice único.
func (r *repositoryImpl) Substituir(db *gorm.DB, c *Certidao) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var atual Certidao
		err := tx.Unscoped().
			Where("cliente_id = ? AND orgao = ?", c.ClienteID, c.Orgao).
			First(&atual).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.ID = 0
			return tx.Create(c).Error
		case err != nil:
			return err
		}
		c.ID = atual.ID
		c.CreatedAt = atual.CreatedAt
		c.DeletedAt = gorm.DeletedAt{}
		return tx.Unscoped().Save(c).Error
	})
}

func (r *repositoryImpl) BuscarPorID(db *gorm.DB, escritorioID, id uint) (*Certidao, error) {
	var c Certidao
	if err := db.Where("escritorio_id = ?", escritorioID).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repositoryImpl) Listar(db *gorm.DB, escritorioID uint, f Filtro) ([]Certidao, error) {
	q := db.Where("escritorio_id = ?", escritorioID)
	if f.ClienteID != 0 {
		q = q.Where("cliente_id = ?", f.ClienteID)
	}
	if f.Orgao != "" {
		q = q.Where("orgao = ?", f.Orgao)
	}
	var cs []Certidao
	err := q.Order("data_validade ASC NULLS LAST, id ASC").Find(&cs).Error
	return cs, err
}

// ListarValidadeAte busca, em todos os escritórios, certidões com validade até o limite.
func (r *repositoryImpl) ListarValidadeAte(db *gorm.DB, limite time.Time) ([]Certidao, error) {
	var cs []Certidao
	err := db.Where("data_validade IS NOT NULL AND data_validade <= ?", limite).
		Order("data_validade ASC").
		Find(&cs).Error
	return cs, err
}

func (r *repositoryImpl) Deletar(db *gorm.DB, escritorioID, id uint) error {
	res := db.Unscoped().Where("escritorio_id = ?", escritorioID).Delete(&Certidao{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
