// Package tarefa organiza as tarefas internas do escritório e seus comentários.
package tarefa

import (
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"gorm.io/gorm"
)

const (
	PrioridadeBaixa = "baixa"
	PrioridadeMedia = "media"
	PrioridadeAlta  = "alta"
)

var prioridades = map[string]bool{PrioridadeBaixa: true, PrioridadeMedia: true, PrioridadeAlta: true}

const (
	StatusPendente    = "pendente"
	StatusEmAndamento = "em_andamento"
	StatusConcluida   = "concluida"
)

var statusValidos = map[string]bool{StatusPendente: true, StatusEmAndamento: true, StatusConcluida: true}

var rotuloStatus = map[string]string{
	StatusPendente:    "Pendente",
	StatusEmAndamento: "Em andamento",
	StatusConcluida:   "Concluída",
}

type Tarefa struct {
	gorm.Model
	EscritorioID  uint       `gorm:"not null;index" json:"escritorioId"`
	ClienteID     *uint      `gorm:"index" json:"clienteId"`
	ResponsavelID *uint      `gorm:"index" json:"responsavelId"`
	Titulo        string     `gorm:"size:255;not null" json:"titulo"`
	Descricao     string     `gorm:"type:text" json:"descricao"`
	Prioridade    string     `gorm:"size:10;not null;default:'media'" json:"prioridade"`
	Status        string     `gorm:"size:20;not null;default:'pendente';index" json:"status"`
	Prazo         *time.Time `json:"prazo"`
	ConcluidaEm   *time.Time `json:"concluidaEm"`

	Atrasada bool `gorm:"-" json:"atrasada"`
}

// Derivar marca como atrasada a tarefa aberta com prazo vencido.
func (t *Tarefa) Derivar(agora time.Time) {
	t.Atrasada = false
	if t.Prazo != nil && t.Status != StatusConcluida {
		t.Atrasada = fiscal.StatusPrazo(*t.Prazo, nil, agora) == fiscal.PrazoAtrasado
	}
}

// ComentarioTarefa sem UsuarioID é um comentário do sistema.
type ComentarioTarefa struct {
	gorm.Model
	TarefaID  uint   `gorm:"not null;index" json:"tarefaId"`
	UsuarioID *uint  `json:"usuarioId"`
	Texto     string `gorm:"type:text;not null" json:"texto"`
	System    bool   `gorm:"not null;default:false" json:"system"`
}

func (ComentarioTarefa) TableName() string { return "comentarios_tarefa" }
