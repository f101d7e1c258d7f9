// Package catalogevents publishes catalog change events to Kafka.
package catalogevents

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// Event announces that the stored coordinates of Code changed. Version is
// monotonically increasing per code; consumers ignore anything not newer
// than what they already applied.
type Event struct {
	ID      string    `json:"id"`
	Op      string    `json:"op"`
	Code    string    `json:"code"`
	Version uint64    `json:"version"`
	TS      time.Time `json:"ts"`
}

func New(op, code string, version uint64) Event {
	return Event{
		ID:      uuid.NewString(),
		Op:      op,
		Code:    code,
		Version: version,
		TS:      time.Now().UTC(),
	}
}

// Decode parses and validates one message value.
func Decode(b []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, fmt.Errorf("decode catalog event: %w", err)
	}
	ev.Code = strings.TrimSpace(ev.Code)
	switch {
	case ev.Code == "":
		return Event{}, errors.New("catalog event: missing code")
	case ev.Op != OpUpsert && ev.Op != OpDelete:
		return Event{}, fmt.Errorf("catalog event: unknown op %q", ev.Op)
	}
	if ev.ID != "" {
		if _, err := uuid.Parse(ev.ID); err != nil {
			return Event{}, fmt.Errorf("catalog event: bad id: %w", err)
		}
	}
	return ev, nil
}

type Publisher struct {
	topic    string
	events   chan Event
	prod     sarama.AsyncProducer
	log      *slog.Logger
	stopped  chan struct{}
	errsDone chan struct{}

	mu     sync.RWMutex
	closed bool
}

// ProducerConfig is the sarama configuration used by NewPublisher.
func ProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return cfg
}

func NewPublisher(brokers []string, topic string, queueSize int, log *slog.Logger) (*Publisher, error) {
	prod, err := sarama.NewAsyncProducer(brokers, ProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("catalogevents: create async producer: %w", err)
	}
	return NewWithProducer(prod, topic, queueSize, log), nil
}

// NewWithProducer wraps an existing producer, which must report errors.
func NewWithProducer(prod sarama.AsyncProducer, topic string, queueSize int, log *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := &Publisher{
		topic:    topic,
		events:   make(chan Event, queueSize),
		prod:     prod,
		log:      log,
		stopped:  make(chan struct{}),
		errsDone: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.log.Error("catalog event marshal failed", "code", ev.Code, "err", err)
				continue
			}
			// keyed by code so every event of one airfoil lands on one partition
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.Code),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		defer close(p.errsDone)
		for err := range p.prod.Errors() {
			if err != nil {
				p.log.Warn("catalog event producer error", "err", err)
			}
		}
	}()

	return p
}

// Publish queues ev without blocking; it reports false when the queue is full
// or the publisher is closed.
func (p *Publisher) Publish(ev Event) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.events <- ev:
		return true
	default:
		return false
	}
}

// Close flushes queued events and closes the producer. Later calls are no-ops.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()
	<-p.stopped

	err := p.prod.Close()
	<-p.errsDone
	if err != nil {
		return fmt.Errorf("catalogevents: close producer: %w", err)
	}
	return nil
}
