package forensics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultStream = "keeper:audit:forensics"

// Record is written outside the audit log before the log itself is erased.
type Record struct {
	Event   string    `json:"event"`
	ActorID int       `json:"actor_id"`
	Count   int       `json:"count"`
	At      time.Time `json:"at"`
}

// Sink stores forensic records somewhere that survives an audit wipe.
type Sink interface {
	Write(ctx context.Context, rec Record) error
}

// RedisSink appends records to a Redis stream.
type RedisSink struct {
	client   *goredis.Client
	addr     string
	password string
	db       int
	stream   string
}

type Option func(*RedisSink)

func WithClient(client *goredis.Client) Option {
	return func(s *RedisSink) {
		if client != nil {
			s.client = client
		}
	}
}

func WithStream(stream string) Option {
	return func(s *RedisSink) {
		stream = strings.TrimSpace(stream)
		if stream != "" {
			s.stream = stream
		}
	}
}

func WithPassword(password string) Option {
	return func(s *RedisSink) { s.password = password }
}

func WithDB(db int) Option {
	return func(s *RedisSink) { s.db = db }
}

// NewRedisSink connects to addr and verifies the connection with a ping.
func NewRedisSink(ctx context.Context, addr string, opts ...Option) (*RedisSink, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	s := &RedisSink{addr: addr, stream: defaultStream}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = goredis.NewClient(&goredis.Options{Addr: s.addr, Password: s.password, DB: s.db})
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return s, nil
}

// Write appends rec to the stream.
func (s *RedisSink) Write(ctx context.Context, rec Record) error {
	payload, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if _, err := s.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{"event": rec.Event, "payload": payload},
	}).Result(); err != nil {
		return fmt.Errorf("failed to write forensic record: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

func encodeRecord(rec Record) (string, error) {
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal forensic record: %w", err)
	}
	return string(payload), nil
}
