package caixapostal

import (
	"time"

	"gorm.io/gorm"
)

type Filtro struct {
	ClienteID   uint
	NaoLidas    bool
	Importantes bool
}

type Contagem struct {
	NaoLidas            int64 `json:"naoLidas"`
	ImportantesNaoLidas int64 `json:"importantesNaoLidas"`
}

type Repository interface {
	Criar(db *gorm.DB, ms []Mensagem) error
	Existe(db *gorm.DB, clienteID uint, origem, protocolo string) (bool, error)
	BuscarPorID(db *gorm.DB, escritorioID, id uint) (*Mensagem, error)
	Listar(db *gorm.DB, escritorioID uint, f Filtro) ([]Mensagem, error)
	MarcarLeitura(db *gorm.DB, escritorioID, id uint, lidaEm *time.Time) error
	Contar(db *gorm.DB, escritorioID uint) (Contagem, error)
	Deletar(db *gorm.DB, escritorioID, id uint) error
}

type repositoryImpl struct{}

func NewRepository() Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) Criar(db *gorm.DB, ms []Mensagem) error {
	if len(ms) == 0 {
		return nil
	}
	return db.Create(&ms).Error
}

func (r *repositoryImpl) Existe(db *gorm.DB, clienteID uint, origem, protocolo string) (bool, error) {
	var n int64
	err := db.Model(&Mensagem{}).
		Where("cliente_id = ? AND origem = ? AND protocolo = ?", clienteID, origem, protocolo).
		Count(&n).Error
	return n > 0, err
}

func (r *repositoryImpl) BuscarPorID(db *gorm.DB, escritorioID, id uint) (*Mensagem, error) {
	var m Mensagem
	if err := db.Where("escritorio_id = ?", escritorioID).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repositoryImpl) Listar(db *gorm.DB, escritorioID uint, f Filtro) ([]Mensagem, error) {
	q := db.Where("escritorio_id = ?", escritorioID)
	if f.ClienteID != 0 {
		q = q.Where("cliente_id = ?", f.ClienteID)
	}
	if f.NaoLidas {
		q = q.Where("lida_em IS NULL")
	}
	if f.Importantes {
		q = q.Where("importante = ?", true)
	}
	var ms []Mensagem
	err := q.Order("recebida_em DESC, id DESC").Find(&ms).Error
	return ms, err
}

func (r *repositoryImpl) MarcarLeitura(db *gorm.DB, escritorioID, id uint, lidaEm *time.Time) error {
	res := db.Model(&Mensagem{}).
		Where("id = ? AND escritorio_id = ?", id, escritorioID).
		Update("lida_em", lidaEm)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) Contar(db *gorm.DB, escritorioID uint) (Contagem, error) {
	var c Contagem
	err := db.Model(&Mensagem{}).
		Select("COUNT(*) AS nao_lidas, COALESCE(SUM(CASE WHEN importante THEN 1 ELSE 0 END), 0) AS importantes_nao_lidas").
		Where("escritorio_id = ? AND lida_em IS NULL", escritorioID).
		Scan(&c).Error
	return c, err
}

func (r *repositoryImpl) Deletar(db *gorm.DB, escritorioID, id uint) error {
	res := db.Where("escritorio_id = ?", escritorioID).Delete(&Mensagem{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
