package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nats-io/nats.go"
)

// NATS публикует события журнала через JetStream.
type NATS struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewNATS подключается к url и создаёт stream для subject-ов журнала, если его нет.
func NewNATS(url, stream string, opts ...nats.Option) (*NATS, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	if _, err := js.StreamInfo(stream); errors.Is(err, nats.ErrStreamNotFound) {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     stream,
			Subjects: []string{SubjectPrefix + ">"},
		})
		if err != nil {
			nc.Close()
			return nil, err
		}
	} else if err != nil {
		nc.Close()
		return nil, err
	}

	return &NATS{conn: nc, js: js}, nil
}

// Close дренирует соединение.
func (n *NATS) Close() {
	if n == nil {
		return
	}
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
}

// Publish кодирует v в JSON и публикует в subject.
func (n *NATS) Publish(ctx context.Context, subject string, v any) error {
	if n == nil {
		return errors.New("nil nats publisher")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = n.js.Publish(subject, data, nats.Context(ctx))
	return err
}
