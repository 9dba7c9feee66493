package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/pomotrack/go/internal/timer"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

type Config struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration // How long to keep messages
	MaxMsgs         int64         // Max number of messages to keep
	Replicas        int
	DuplicateWindow time.Duration
	PublishTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:             nats.DefaultURL,
		StreamName:      "TIMER_EVENTS",
		SubjectPrefix:   "timer.events",
		MaxReconnects:   -1, // Infinite
		ReconnectWait:   2 * time.Second,
		MaxAge:          7 * 24 * time.Hour,
		MaxMsgs:         -1,
		Replicas:        1,
		DuplicateWindow: 2 * time.Minute,
		PublishTimeout:  5 * time.Second,
	}
}

// MessagePublisher is the part of jetstream.JetStream the publisher uses.
type MessagePublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Envelope is the message body published for every timer event.
type Envelope struct {
	EventID   string      `json:"eventId"`
	EventType string      `json:"eventType"`
	Source    string      `json:"source"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   timer.Event `json:"payload"`
}

// Publisher fans timer events out to other services over JetStream.
type Publisher struct {
	nc     *nats.Conn
	js     MessagePublisher
	config Config
	source string
}

// Connect dials NATS, ensures the stream exists and returns a publisher.
func Connect(ctx context.Context, cfg Config, source string) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name(source),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	if err := ensureStream(ctx, js, cfg); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	p := NewPublisher(js, cfg, source)
	p.nc = nc
	return p, nil
}

// NewPublisher wraps an existing JetStream handle.
func NewPublisher(js MessagePublisher, cfg Config, source string) *Publisher {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultConfig().PublishTimeout
	}
	return &Publisher{js: js, config: cfg, source: source}
}

func ensureStream(ctx context.Context, js jetstream.JetStream, cfg Config) error {
	sc := jetstream.StreamConfig{
		Name:        cfg.StreamName,
		Description: "Timer session events",
		Subjects:    []string{fmt.Sprintf("%s.>", cfg.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      cfg.MaxAge,
		MaxMsgs:     cfg.MaxMsgs,
		Storage:     jetstream.FileStorage,
		Replicas:    cfg.Replicas,
		Duplicates:  cfg.DuplicateWindow,
	}

	stream, err := js.Stream(ctx, cfg.StreamName)
	if err != nil {
		if _, err = js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", cfg.StreamName).Msg("created JetStream stream")
		return nil
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	if !isStreamConfigEqual(info.Config, sc) {
		if _, err = js.UpdateStream(ctx, sc); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		log.Info().Str("stream", cfg.StreamName).Msg("updated JetStream stream")
	}
	return nil
}

// Subject returns the subject an event type is published on.
func (p *Publisher) Subject(eventType timer.EventType) string {
	return fmt.Sprintf("%s.%s", p.config.SubjectPrefix, eventType)
}

// Publish sends one event to the stream.
func (p *Publisher) Publish(ctx context.Context, event timer.Event) error {
	env := Envelope{
		EventID:   uuid.New().String(),
		EventType: string(event.Type),
		Source:    p.source,
		Timestamp: event.At.UTC(),
		Payload:   event,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := p.Subject(event.Type)
	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{env.EventType},
			"Event-ID":   []string{env.EventID},
			"Source":     []string{p.source},
		},
	},
		jetstream.WithMsgID(env.EventID),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", env.EventID).
		Uint64("sequence", ack.Sequence).
		Str("stream", ack.Stream).
		Msg("published to JetStream")
	return nil
}

// Forward publishes events until the channel closes or ctx is done.
// Ticks are not published. Failures are logged and dropped.
func (p *Publisher) Forward(ctx context.Context, events <-chan timer.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Type == timer.EventTick {
				continue
			}

			pubCtx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
			err := p.Publish(pubCtx, event)
			cancel()
			if err != nil {
				log.Error().
					Err(err).
					Str("event_type", string(event.Type)).
					Msg("failed to publish timer event")
			}
		}
	}
}

// IsConnected reports whether the NATS connection is up. Publishers built
// with NewPublisher have no connection of their own and report true.
func (p *Publisher) IsConnected() bool {
	if p.nc == nil {
		return true
	}
	return p.nc.IsConnected()
}

func (p *Publisher) Close() error {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
			return err
		}
	}
	return nil
}

func isStreamConfigEqual(a, b jetstream.StreamConfig) bool {
	return a.Name == b.Name &&
		a.MaxAge == b.MaxAge &&
		a.MaxMsgs == b.MaxMsgs &&
		a.Replicas == b.Replicas &&
		a.Duplicates == b.Duplicates
}
