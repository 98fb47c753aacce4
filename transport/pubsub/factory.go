package pubsub

import (
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Connect dials the event bus. The connection keeps reconnecting in
// the background once established.
func Connect(url string, name string, log *zap.Logger) (*nats.Conn, error) {
	log = log.With(
		zap.String("infra", "pubsub"),
		zap.String("url", url),
	)

	return nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("reconnected")
		}),
	)
}
