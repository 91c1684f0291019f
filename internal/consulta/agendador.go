package consulta

import (
	"context"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/cnd"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// TempoTravamento após o qual um job em processamento volta para a fila.
	TempoTravamento = 15 * time.Minute
	// IntervaloMinimo entre consultas automáticas da mesma certidão.
	IntervaloMinimo = 24 * time.Hour
)

// Agendador roda periodicamente: recupera jobs travados, republica pendentes
// parados e enfileira consultas para certidões vencidas ou a vencer.
type Agendador struct {
	DB        *gorm.DB
	Consultas Repository
	Certidoes cnd.Repository
	Fila      Publicador
	Logger    *zap.Logger
	Intervalo time.Duration
	Janela    int
	Agora     func() time.Time
}

// Resumo de uma rodada.
type Resumo struct {
	Reenfileiradas int
	Republicadas   int
	Agendadas      int
}

func (a *Agendador) agora() time.Time {
	if a.Agora != nil {
		return a.Agora()
	}
	return time.Now()
}

// Executar bloqueia até o contexto ser cancelado.
func (a *Agendador) Executar(ctx context.Context) error {
	intervalo := a.Intervalo
	if intervalo <= 0 {
		intervalo = time.Hour
	}
	ticker := time.NewTicker(intervalo)
	defer ticker.Stop()

	for {
		if r, err := a.Rodar(ctx); err != nil {
			a.Logger.Error("falha na rodada do agendador", zap.Error(err))
		} else {
			a.Logger.Info("rodada do agendador",
				zap.Int("reenfileiradas", r.Reenfileiradas),
				zap.Int("republicadas", r.Republicadas),
				zap.Int("agendadas", r.Agendadas),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (a *Agendador) Rodar(ctx context.Context) (Resumo, error) {
	var r Resumo
	agora := a.agora()
	var publicar []string

	travadas, err := a.Consultas.ListarTravadas(a.DB, agora.Add(-TempoTravamento))
	if err != nil {
		return r, err
	}
	for _, c := range travadas {
		if err := a.Consultas.VoltarParaFila(a.DB, c.ID, "reenfileirada após travamento"); err != nil {
			continue
		}
		publicar = append(publicar, c.ID)
		r.Reenfileiradas++
	}

	intervalo := a.Intervalo
	if intervalo <= 0 {
		intervalo = time.Hour
	}
	pendentes, err := a.Consultas.ListarPendentes(a.DB, agora.Add(-intervalo))
	if err != nil {
		return r, err
	}
	for _, c := range pendentes {
		publicar = append(publicar, c.ID)
		r.Republicadas++
	}

	janela := a.Janela
	if janela < 0 {
		janela = 0
	}
	certs, err := a.Certidoes.ListarValidadeAte(a.DB, agora.AddDate(0, 0, janela+1))
	if err != nil {
		return r, err
	}
	var novas []Consulta
	for _, cert := range certs {
		cert.Derivar(agora, a.Janela)
		if !cert.Vencendo() {
			continue
		}
		if cert.UltimaConsulta != nil && agora.Sub(*cert.UltimaConsulta) < IntervaloMinimo {
			continue
		}
		if _, err := a.Consultas.BuscarAberta(a.DB, cert.ClienteID, cert.Orgao); err == nil {
			continue
		}
		novas = append(novas, Consulta{
			EscritorioID: cert.EscritorioID,
			ClienteID:    cert.ClienteID,
			Orgao:        cert.Orgao,
			Status:       StatusPendente,
		})
	}
	if err := a.Consultas.Criar(a.DB, novas); err != nil {
		return r, err
	}
	for _, c := range novas {
		publicar = append(publicar, c.ID)
	}
	r.Agendadas = len(novas)

	if err := a.Fila.Publicar(ctx, publicar...); err != nil {
		return r, err
	}
	return r, nil
}
