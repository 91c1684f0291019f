package parcelamento

import (
	"time"

	"gorm.io/gorm"
)

type Filtro struct {
	ClienteID uint
	Situacao  string
}

type Repository interface {
	Criar(db *gorm.DB, p *Parcelamento) error
	BuscarPorID(db *gorm.DB, escritorioID, id uint) (*Parcelamento, error)
	Listar(db *gorm.DB, escritorioID uint, f Filtro) ([]Parcelamento, error)
	AtualizarCabecalho(db *gorm.DB, p *Parcelamento) error
	BuscarParcela(db *gorm.DB, escritorioID, parcelaID uint) (*Parcela, error)
	AtualizarStatusParcela(db *gorm.DB, parcelaID uint, status string, dataPagamento time.Time) (*Parcela, error)
	Deletar(db *gorm.DB, escritorioID, id uint) error
}

type repositoryImpl struct{}

func NewRepository() Repository {
	return &repositoryImpl{}
}

func ordenarParcelas(db *gorm.DB) *gorm.DB {
	return db.Order("numero ASC")
}

// Criar grava o parcelamento e as parcelas na mesma transação.
func (r *repositoryImpl) Criar(db *gorm.DB, p *Parcelamento) error {
	return db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(p).Error
	})
}

func (r *repositoryImpl) BuscarPorID(db *gorm.DB, escritorioID, id uint) (*Parcelamento, error) {
	var p Parcelamento
	err := db.Preload("Parcelas", ordenarParcelas).
		Where("escritorio_id = ?", escritorioID).
		First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repositoryImpl) Listar(db *gorm.DB, escritorioID uint, f Filtro) ([]Parcelamento, error) {
	q := db.Preload("Parcelas", ordenarParcelas).Where("escritorio_id = ?", escritorioID)
	if f.ClienteID != 0 {
		q = q.Where("cliente_id = ?", f.ClienteID)
	}
	if f.Situacao != "" {
		q = q.Where("situacao = ?", f.Situacao)
	}
	var ps []Parcelamento
	err := q.Order("data_inicio DESC, id DESC").Find(&ps).Error
	return ps, err
}

// AtualizarCabecalho altera só os dados descritivos; valores e parcelas não mudam.
func (r *repositoryImpl) AtualizarCabecalho(db *gorm.DB, p *Parcelamento) error {
	return db.Model(p).Select("numero", "modalidade", "situacao").Updates(p).Error
}

func (r *repositoryImpl) BuscarParcela(db *gorm.DB, escritorioID, parcelaID uint) (*Parcela, error) {
	var pc Parcela
	err := db.Table("parcelas_parcelamento").
		Select("parcelas_parcelamento.*").
		Joins("JOIN parcelamentos ON parcelamentos.id = parcelas_parcelamento.parcelamento_id AND parcelamentos.deleted_at IS NULL").
		Where("parcelamentos.escritorio_id = ? AND parcelas_parcelamento.id = ?", escritorioID, parcelaID).
		First(&pc).Error
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

// AtualizarStatusParcela muda o status e recalcula a situação do parcelamento na mesma transação.
// Status "Pago" grava a data de pagamento; os demais a zeram.
func (r *repositoryImpl) AtualizarStatusParcela(db *gorm.DB, parcelaID uint, status string, dataPagamento time.Time) (*Parcela, error) {
	var pc Parcela
	err := db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": status}
		if status == ParcelaPaga {
			updates["data_pagamento"] = &dataPagamento
		} else {
			updates["data_pagamento"] = nil
		}
		res := tx.Model(&Parcela{}).Where("id = ?", parcelaID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.First(&pc, parcelaID).Error; err != nil {
			return err
		}
		return recalcSituacao(tx, pc.ParcelamentoID)
	})
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

// recalcSituacao quita o parcelamento segundo Quitavel e o reativa quando deixa
// de ser quitável. Rescindidos não mudam.
func recalcSituacao(tx *gorm.DB, parcelamentoID uint) error {
	var c struct {
		Pagas     int
		Pendentes int
	}
	if err := tx.Model(&Parcela{}).
		Select("COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pagas, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pendentes", ParcelaPaga, ParcelaPendente).
		Where("parcelamento_id = ?", parcelamentoID).
		Scan(&c).Error; err != nil {
		return err
	}
	q := tx.Model(&Parcelamento{}).Where("id = ?", parcelamentoID)
	if Quitavel(c.Pagas, c.Pendentes) {
		return q.Where("situacao = ?", SituacaoAtivo).Update("situacao", SituacaoQuitado).Error
	}
	return q.Where("situacao = ?", SituacaoQuitado).Update("situacao", SituacaoAtivo).Error
}

func (r *repositoryImpl) Deletar(db *gorm.DB, escritorioID, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("escritorio_id = ?", escritorioID).Delete(&Parcelamento{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("parcelamento_id = ?", id).Delete(&Parcela{}).Error
	})
}
