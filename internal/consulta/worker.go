package consulta

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pool distribui as mensagens do tópico entre N workers. Cada mensagem recebe
// Ack assim que lida: a reivindicação no banco é que garante execução única, e
// o agendador recupera o que se perder.
type Pool struct {
	Subscriber  message.Subscriber
	Processador *Processador
	Workers     int
	Logger      *zap.Logger
}

func (p *Pool) Executar(ctx context.Context) error {
	msgs, err := p.Subscriber.Subscribe(ctx, Topico)
	if err != nil {
		return err
	}
	n := p.Workers
	if n < 1 {
		n = 1
	}
	p.Logger.Info("workers de consulta iniciados", zap.Int("workers", n), zap.String("topico", Topico))

	ids := make(chan string)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(ids)
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-msgs:
				if !ok {
					return nil
				}
				var m Mensagem
				err := json.Unmarshal(msg.Payload, &m)
				msg.Ack()
				if err != nil || m.ConsultaID == "" {
					p.Logger.Warn("mensagem de consulta inválida", zap.String("uuid", msg.UUID), zap.Error(err))
					continue
				}
				select {
				case ids <- m.ConsultaID:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})

	for i := 0; i < n; i++ {
		g.Go(func() error {
			for id := range ids {
				if err := p.Processador.Processar(ctx, id); err != nil {
					p.Logger.Error("falha ao processar consulta", zap.String("consulta_id", id), zap.Error(err))
				}
			}
			return nil
		})
	}

	err = g.Wait()
	p.Logger.Info("workers de consulta encerrados")
	return err
}
