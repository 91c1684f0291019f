package usuario

import (
	"strings"

	"gorm.io/gorm"
)

type Repository interface {
	BuscarPorEmail(db *gorm.DB, email string) (*Usuario, error)
	BuscarPorID(db *gorm.DB, escritorioID, id uint) (*Usuario, error)
	ListarPorEscritorio(db *gorm.DB, escritorioID uint) ([]Usuario, error)
	EmailEmUso(db *gorm.DB, email string, excetoID uint) (bool, error)
	EstadoSessao(db *gorm.DB, id uint) (ativo, admin bool, err error)
	Salvar(db *gorm.DB, u *Usuario) error
	Deletar(db *gorm.DB, escritorioID, id uint) error
}

type repositoryImpl struct{}

func NewRepository() Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) BuscarPorEmail(db *gorm.DB, email string) (*Usuario, error) {
	var u Usuario
	err := db.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repositoryImpl) BuscarPorID(db *gorm.DB, escritorioID, id uint) (*Usuario, error) {
	var u Usuario
	err := db.Where("escritorio_id = ?", escritorioID).First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repositoryImpl) ListarPorEscritorio(db *gorm.DB, escritorioID uint) ([]Usuario, error) {
	var us []Usuario
	err := db.Where("escritorio_id = ?", escritorioID).Order("nome ASC").Find(&us).Error
	return us, err
}

// EmailEmUso inclui usuários removidos: o índice único de email vale para eles também.
func (r *repositoryImpl) EmailEmUso(db *gorm.DB, email string, excetoID uint) (bool, error) {
	var n int64
	err := db.Unscoped().Model(&Usuario{}).
		Where("LOWER(email) = ? AND id <> ?", strings.ToLower(strings.TrimSpace(email)), excetoID).
		Count(&n).Error
	return n > 0, err
}

// EstadoSessao alimenta a renovação de tokens; usuário removido volta ErrRecordNotFound.
func (r *repositoryImpl) EstadoSessao(db *gorm.DB, id uint) (bool, bool, error) {
	var u Usuario
	if err := db.Select("id", "papel", "ativo").First(&u, id).Error; err != nil {
		return false, false, err
	}
	return u.Ativo, u.IsAdmin(), nil
}

func (r *repositoryImpl) Salvar(db *gorm.DB, u *Usuario) error {
	return db.Save(u).Error
}

func (r *repositoryImpl) Deletar(db *gorm.DB, escritorioID, id uint) error {
	res := db.Where("escritorio_id = ?", escritorioID).Delete(&Usuario{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
