package consulta

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

// Topico das mensagens que acordam os workers.
const Topico = "consultas.cnd"

const grupoConsumidor = "painel-fiscal-workers"

type Mensagem struct {
	ConsultaID string `json:"consultaId"`
}

// Fila agrupa publisher e subscriber do mesmo backend.
type Fila struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	redis      redis.UniversalClient
	memoria    bool
}

// NovaFila usa Redis Streams quando redisURL está definida; caso contrário,
// um canal em memória, suficiente quando API e workers rodam no mesmo processo.
func NovaFila(redisURL string, logger watermill.LoggerAdapter) (*Fila, error) {
	if redisURL == "" {
		pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 1024}, logger)
		return &Fila{Publisher: pubSub, Subscriber: pubSub, memoria: true}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("REDIS_URL inválida: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("falha ao conectar no redis: %w", err)
	}

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	consumidor, _ := os.Hostname()
	if consumidor == "" {
		consumidor = watermill.NewShortUUID()
	}
	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        client,
		ConsumerGroup: grupoConsumidor,
		Consumer:      consumidor,
	}, logger)
	if err != nil {
		_ = publisher.Close()
		_ = client.Close()
		return nil, err
	}
	return &Fila{Publisher: publisher, Subscriber: subscriber, redis: client}, nil
}

// Publicar envia uma mensagem por consulta.
func (f *Fila) Publicar(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	msgs := make([]*message.Message, 0, len(ids))
	for _, id := range ids {
		payload, err := json.Marshal(Mensagem{ConsultaID: id})
		if err != nil {
			return err
		}
		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.SetContext(ctx)
		msgs = append(msgs, msg)
	}
	return f.Publisher.Publish(Topico, msgs...)
}

func (f *Fila) Close() error {
	var primeiro error
	if err := f.Publisher.Close(); err != nil {
		primeiro = err
	}
	if !f.memoria {
		if err := f.Subscriber.Close(); err != nil && primeiro == nil {
			primeiro = err
		}
	}
	if f.redis != nil {
		if err := f.redis.Close(); err != nil && primeiro == nil {
			primeiro = err
		}
	}
	return primeiro
}
