package tarefa

import "gorm.io/gorm"

type Filtro struct {
	ClienteID     uint
	ResponsavelID uint
	Status        []string
}

type Repository interface {
	Salvar(db *gorm.DB, t *Tarefa) error
	BuscarPorID(db *gorm.DB, escritorioID, id uint) (*Tarefa, error)
	Listar(db *gorm.DB, escritorioID uint, f Filtro) ([]Tarefa, error)
	// AtualizarStatus grava o status e o comentário do sistema na mesma transação.
	AtualizarStatus(db *gorm.DB, t *Tarefa, c *ComentarioTarefa) error
	Deletar(db *gorm.DB, escritorioID, id uint) error

	CriarComentario(db *gorm.DB, c *ComentarioTarefa) error
	ListarComentarios(db *gorm.DB, tarefaID uint) ([]ComentarioTarefa, error)
	BuscarComentario(db *gorm.DB, tarefaID, id uint) (*ComentarioTarefa, error)
	RemoverComentario(db *gorm.DB, tarefaID, id uint) error
}

type repositoryImpl struct{}

func NewRepository() Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) Salvar(db *gorm.DB, t *Tarefa) error {
	return db.Save(t).Error
}

func (r *repositoryImpl) BuscarPorID(db *gorm.DB, escritorioID, id uint) (*Tarefa, error) {
	var t Tarefa
	if err := db.Where("escritorio_id = ?", escritorioID).First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repositoryImpl) Listar(db *gorm.DB, escritorioID uint, f Filtro) ([]Tarefa, error) {
	q := db.Where("escritorio_id = ?", escritorioID)
	if f.ClienteID != 0 {
		q = q.Where("cliente_id = ?", f.ClienteID)
	}
	if f.ResponsavelID != 0 {
		q = q.Where("responsavel_id = ?", f.ResponsavelID)
	}
	if len(f.Status) > 0 {
		q = q.Where("status IN ?", f.Status)
	}
	var ts []Tarefa
	err := q.Order("prazo ASC NULLS LAST, id DESC").Find(&ts).Error
	return ts, err
}

func (r *repositoryImpl) AtualizarStatus(db *gorm.DB, t *Tarefa, c *ComentarioTarefa) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(t).Select("status", "concluida_em").Updates(t).Error; err != nil {
			return err
		}
		return tx.Create(c).Error
	})
}

// Deletar remove a tarefa e os comentários.
func (r *repositoryImpl) Deletar(db *gorm.DB, escritorioID, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("escritorio_id = ?", escritorioID).Delete(&Tarefa{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("tarefa_id = ?", id).Delete(&ComentarioTarefa{}).Error
	})
}

func (r *repositoryImpl) CriarComentario(db *gorm.DB, c *ComentarioTarefa) error {
	return db.Create(c).Error
}

func (r *repositoryImpl) ListarComentarios(db *gorm.DB, tarefaID uint) ([]ComentarioTarefa, error) {
	var cs []ComentarioTarefa
	err := db.Where("tarefa_id = ?", tarefaID).Order("created_at ASC, id ASC").Find(&cs).Error
	return cs, err
}

func (r *repositoryImpl) BuscarComentario(db *gorm.DB, tarefaID, id uint) (*ComentarioTarefa, error) {
	var c ComentarioTarefa
	if err := db.Where("tarefa_id = ?", tarefaID).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repositoryImpl) RemoverComentario(db *gorm.DB, tarefaID, id uint) error {
	res := db.Where("tarefa_id = ?", tarefaID).Delete(&ComentarioTarefa{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
