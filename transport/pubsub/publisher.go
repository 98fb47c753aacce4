package pubsub

import (
	"encoding/json"

	"github.com/flarexio/movielist/list"
)

// Conn is the publishing side of a NATS connection.
type Conn interface {
	Publish(subject string, data []byte) error
}

func NewPublisher(conn Conn, subject string) list.EventPublisher {
	if subject == "" {
		subject = "lists"
	}

	return &publisher{conn, subject}
}

type publisher struct {
	conn    Conn
	subject string
}

// Publish sends the event to <subject>.<list_id>.<action>.
func (p *publisher) Publish(e *list.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return p.conn.Publish(e.Topic(p.subject), data)
}

func NopPublisher() list.EventPublisher {
	return nopPublisher{}
}

type nopPublisher struct{}

func (nopPublisher) Publish(e *list.Event) error {
	return nil
}
