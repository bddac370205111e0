package bus

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
)

// Message is a single message received from the queue. The payload and
// attribute headers are exported so callers can inspect them; the underlying
// delivery is removed through Queue.Delete.
type Message struct {
	Data   []byte
	Header nats.Header

	raw *nats.Msg
}

// Queue wraps a NATS JetStream pull consumer bound to a single subject.
// Messages stay on the queue until explicitly deleted, so a consumer that
// dies mid-message sees the message redelivered (at-least-once).
type Queue struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	sub     *nats.Subscription
	subject string
}

// New connects to NATS, ensures the stream exists, and binds a durable pull
// consumer for the given subject.
func New(url, stream, subject, durable string, opts ...nats.Option) (*Queue, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	if _, err := js.StreamInfo(stream); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			nc.Close()
			return nil, err
		}
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     stream,
			Subjects: []string{subject},
		})
		if err != nil {
			nc.Close()
			return nil, err
		}
	}

	sub, err := js.PullSubscribe(subject, durable, nats.AckExplicit())
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &Queue{conn: nc, js: js, sub: sub, subject: subject}, nil
}

// Close shuts down the underlying NATS connection.
func (q *Queue) Close() {
	if q == nil {
		return
	}
	if err := q.conn.Drain(); err != nil {
		q.conn.Close()
	}
}

// Receive waits up to wait for a single message. It returns (nil, nil) when
// the wait elapses with nothing available.
func (q *Queue) Receive(ctx context.Context, wait time.Duration) (*Message, error) {
	if q == nil {
		return nil, errors.New("nil queue")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	msgs, err := q.sub.Fetch(1, nats.Context(fetchCtx))
	if err != nil {
		if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	raw := msgs[0]
	return &Message{Data: raw.Data, Header: raw.Header, raw: raw}, nil
}

// Delete acknowledges the message so the queue never redelivers it.
func (q *Queue) Delete(msg *Message) error {
	if q == nil {
		return errors.New("nil queue")
	}
	if msg == nil || msg.raw == nil {
		return nil
	}
	return msg.raw.Ack()
}

// Publish sends data to the queue subject with the given attribute headers.
func (q *Queue) Publish(ctx context.Context, data []byte, header nats.Header) error {
	if q == nil {
		return errors.New("nil queue")
	}

	_, err := q.js.PublishMsg(&nats.Msg{
		Subject: q.subject,
		Data:    data,
		Header:  header,
	}, nats.Context(ctx))
	return err
}
