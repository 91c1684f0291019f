package escritorio

import "gorm.io/gorm"

type Repository interface {
	BuscarPorID(db *gorm.DB, id uint) (*Escritorio, error)
	ExisteCNPJ(db *gorm.DB, cnpj string) (bool, error)
	Salvar(db *gorm.DB, e *Escritorio) error
}

type repositoryImpl struct{}

func NewRepository() Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) BuscarPorID(db *gorm.DB, id uint) (*Escritorio, error) {
	var e Escritorio
	if err := db.First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repositoryImpl) ExisteCNPJ(db *gorm.DB, cnpj string) (bool, error) {
	var n int64
	err := db.Model(&Escritorio{}).Where("cnpj = ?", cnpj).Count(&n).Error
	return n > 0, err
}

func (r *repositoryImpl) Salvar(db *gorm.DB, e *Escritorio) error {
	return db.Save(e).Error
}
