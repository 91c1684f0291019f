package cliente

import (
	"strings"

	"github.com/KromaEnergia/painel-fiscal/internal/utils"
	"gorm.io/gorm"
)

type Filtro struct {
	Busca string
	Ativo *bool
}

type Repository interface {
	Salvar(db *gorm.DB, c *Cliente) error
	BuscarPorID(db *gorm.DB, escritorioID, id uint) (*Cliente, error)
	BuscarPorCNPJ(db *gorm.DB, escritorioID uint, cnpj string) (*Cliente, error)
	Listar(db *gorm.DB, escritorioID uint, f Filtro) ([]Cliente, error)
	Contar(db *gorm.DB, escritorioID uint) (int64, error)
	Deletar(db *gorm.DB, escritorioID, id uint) error
}

type repositoryImpl struct{}

func NewRepository() Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) Salvar(db *gorm.DB, c *Cliente) error {
	return db.Save(c).Error
}

func (r *repositoryImpl) BuscarPorID(db *gorm.DB, escritorioID, id uint) (*Cliente, error) {
	var c Cliente
	if err := db.Where("escritorio_id = ?", escritorioID).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repositoryImpl) BuscarPorCNPJ(db *gorm.DB, escritorioID uint, cnpj string) (*Cliente, error) {
	var c Cliente
	if err := db.Where("escritorio_id = ? AND cnpj = ?", escritorioID, cnpj).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// Listar filtra por razão social, nome fantasia ou CNPJ (com ou sem máscara).
func (r *repositoryImpl) Listar(db *gorm.DB, escritorioID uint, f Filtro) ([]Cliente, error) {
	q := db.Where("escritorio_id = ?", escritorioID)
	if busca := strings.TrimSpace(f.Busca); busca != "" {
		like := "%" + strings.ToLower(busca) + "%"
		digitos := utils.SomenteDigitos(busca)
		if digitos != "" {
			q = q.Where("LOWER(razao_social) LIKE ? OR LOWER(nome_fantasia) LIKE ? OR cnpj LIKE ?", like, like, "%"+digitos+"%")
		} else {
			q = q.Where("LOWER(razao_social) LIKE ? OR LOWER(nome_fantasia) LIKE ?", like, like)
		}
	}
	if f.Ativo != nil {
		q = q.Where("ativo = ?", *f.Ativo)
	}
	var cs []Cliente
	err := q.Order("razao_social ASC").Find(&cs).Error
	return cs, err
}

func (r *repositoryImpl) Contar(db *gorm.DB, escritorioID uint) (int64, error) {
	var n int64
	err := db.Model(&Cliente{}).Where("escritorio_id = ? AND ativo = ?", escritorioID, true).Count(&n).Error
	return n, err
}

func (r *repositoryImpl) Deletar(db *gorm.DB, escritorioID, id uint) error {
	res := db.Where("escritorio_id = ?", escritorioID).Delete(&Cliente{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
