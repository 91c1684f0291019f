package tarefa

import "time"

type AutorDTO struct {
	Tipo string `json:"tipo"`         // "usuario" | "system"
	ID   *uint  `json:"id,omitempty"` // nil para system
	Nome string `json:"nome,omitempty"`
}

type ComentarioDTO struct {
	ID        uint      `json:"id"`
	TarefaID  uint      `json:"tarefaId"`
	Texto     string    `json:"texto"`
	System    bool      `json:"system"`
	CreatedAt time.Time `json:"createdAt"`
	Autor     AutorDTO  `json:"autor"`
}

func toDTO(c ComentarioTarefa, nomes map[uint]string) ComentarioDTO {
	out := ComentarioDTO{
		ID:        c.ID,
		TarefaID:  c.TarefaID,
		Texto:     c.Texto,
		System:    c.System,
		CreatedAt: c.CreatedAt,
	}
	if c.System || c.UsuarioID == nil {
		out.Autor = AutorDTO{Tipo: "system", Nome: "Sistema"}
		return out
	}
	id := *c.UsuarioID
	nome := nomes[id]
	if nome == "" {
		nome = "Usuário"
	}
	out.Autor = AutorDTO{Tipo: "usuario", ID: &id, Nome: nome}
	return out
}

func toDTOs(list []ComentarioTarefa, nomes map[uint]string) []ComentarioDTO {
	out := make([]ComentarioDTO, 0, len(list))
	for _, c := range list {
		out = append(out, toDTO(c, nomes))
	}
	return out
}
