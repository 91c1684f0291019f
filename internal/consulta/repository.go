package consulta

import (
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"gorm.io/gorm"
)

type Filtro struct {
	Status    []Status
	ClienteID uint
	Limite    int
}

// Resultado é o que o worker grava ao finalizar um job.
type Resultado struct {
	Status        Status
	Erro          string
	CodigoRetorno int
	Situacao      fiscal.Situacao
	CertidaoID    *uint
	FinalizadaEm  time.Time
}

type Repository interface {
	Criar(db *gorm.DB, cs []Consulta) error
	BuscarPorID(db *gorm.DB, escritorioID uint, id string) (*Consulta, error)
	Carregar(db *gorm.DB, id string) (*Consulta, error)
	Listar(db *gorm.DB, escritorioID uint, f Filtro) ([]Consulta, error)
	BuscarAberta(db *gorm.DB, clienteID uint, orgao fiscal.Orgao) (*Consulta, error)
	Reivindicar(db *gorm.DB, id string, agora time.Time) (bool, error)
	Finalizar(db *gorm.DB, id string, r Resultado) error
	VoltarParaFila(db *gorm.DB, id, motivo string) error
	ListarTravadas(db *gorm.DB, iniciadasAntesDe time.Time) ([]Consulta, error)
	ListarPendentes(db *gorm.DB, paradasDesde time.Time) ([]Consulta, error)
	ContarAbertas(db *gorm.DB, escritorioID uint) (int64, error)
}

type repositoryImpl struct{}

func NewRepository() Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) Criar(db *gorm.DB, cs []Consulta) error {
	if len(cs) == 0 {
		return nil
	}
	return db.Create(&cs).Error
}

func (r *repositoryImpl) BuscarPorID(db *gorm.DB, escritorioID uint, id string) (*Consulta, error) {
	var c Consulta
	if err := db.Where("escritorio_id = ? AND id = ?", escritorioID, id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// Carregar busca o job sem filtro de escritório; uso exclusivo dos workers.
func (r *repositoryImpl) Carregar(db *gorm.DB, id string) (*Consulta, error) {
	var c Consulta
	if err := db.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repositoryImpl) Listar(db *gorm.DB, escritorioID uint, f Filtro) ([]Consulta, error) {
	q := db.Where("escritorio_id = ?", escritorioID)
	if len(f.Status) > 0 {
		q = q.Where("status IN ?", f.Status)
	}
	if f.ClienteID != 0 {
		q = q.Where("cliente_id = ?", f.ClienteID)
	}
	limite := f.Limite
	if limite <= 0 || limite > 500 {
		limite = 100
	}
	var cs []Consulta
	err := q.Order("created_at DESC").Limit(limite).Find(&cs).Error
	return cs, err
}

func (r *repositoryImpl) BuscarAberta(db *gorm.DB, clienteID uint, orgao fiscal.Orgao) (*Consulta, error) {
	var c Consulta
	err := db.Where("cliente_id = ? AND orgao = ? AND status IN ?", clienteID, orgao,
		[]Status{StatusPendente, StatusProcessando}).
		Order("created_at DESC").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Reivindicar passa o job de pendente para processando. Só um worker consegue;
// entregas duplicadas da mesma mensagem retornam false.
func (r *repositoryImpl) Reivindicar(db *gorm.DB, id string, agora time.Time) (bool, error) {
	res := db.Model(&Consulta{}).
		Where("id = ? AND status = ?", id, StatusPendente).
		Updates(map[string]interface{}{
			"status":      StatusProcessando,
			"iniciada_em": agora,
			"tentativas":  gorm.Expr("tentativas + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Finalizar só altera jobs em processamento, para que um worker atrasado não
// sobrescreva um job já devolvido à fila.
func (r *repositoryImpl) Finalizar(db *gorm.DB, id string, res Resultado) error {
	out := db.Model(&Consulta{}).
		Where("id = ? AND status = ?", id, StatusProcessando).
		Updates(map[string]interface{}{
			"status":         res.Status,
			"erro":           res.Erro,
			"codigo_retorno": res.CodigoRetorno,
			"situacao":       res.Situacao,
			"certidao_id":    res.CertidaoID,
			"finalizada_em":  res.FinalizadaEm,
		})
	if out.Error != nil {
		return out.Error
	}
	if out.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) VoltarParaFila(db *gorm.DB, id, motivo string) error {
	out := db.Model(&Consulta{}).
		Where("id = ? AND status = ?", id, StatusProcessando).
		Updates(map[string]interface{}{
			"status":      StatusPendente,
			"erro":        motivo,
			"iniciada_em": nil,
		})
	if out.Error != nil {
		return out.Error
	}
	if out.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) ListarTravadas(db *gorm.DB, iniciadasAntesDe time.Time) ([]Consulta, error) {
	var cs []Consulta
	err := db.Where("status = ? AND iniciada_em < ?", StatusProcessando, iniciadasAntesDe).Find(&cs).Error
	return cs, err
}

func (r *repositoryImpl) ListarPendentes(db *gorm.DB, paradasDesde time.Time) ([]Consulta, error) {
	var cs []Consulta
	err := db.Where("status = ? AND updated_at < ?", StatusPendente, paradasDesde).
		Order("created_at ASC").
		Find(&cs).Error
	return cs, err
}

func (r *repositoryImpl) ContarAbertas(db *gorm.DB, escritorioID uint) (int64, error) {
	var n int64
	err := db.Model(&Consulta{}).
		Where("escritorio_id = ? AND status IN ?", escritorioID, []Status{StatusPendente, StatusProcessando}).
		Count(&n).Error
	return n, err
}
