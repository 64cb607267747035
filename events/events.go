// Package events publishes domain events (new posts, comments and follows)
// to Kafka so that other systems can react to activity on the site.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"yatube/metrics"
)

// Event types.
const (
	PostCreated    = "post.created"
	PostEdited     = "post.edited"
	CommentCreated = "comment.created"
	FollowCreated  = "follow.created"
	FollowDeleted  = "follow.deleted"
)

// Event is a single domain event. ActorID is the user that caused it.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	ActorID   int       `json:"actor_id"`
	AuthorID  int       `json:"author_id,omitempty"`
	PostID    int       `json:"post_id,omitempty"`
	CommentID int       `json:"comment_id,omitempty"`
	Time      time.Time `json:"time"`
}

// New returns an event of the given type with a fresh ID and timestamp.
func New(typ string, actorID int) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    typ,
		ActorID: actorID,
		Time:    time.Now().UTC(),
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// MessageWriter defines an interface for writing messages to Kafka.
// *kafka.Writer satisfies it.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig holds configuration parameters for Kafka.
type KafkaConfig struct {
	Brokers      []string      // list of Kafka brokers
	Topic        string        // topic name
	WriteTimeout time.Duration // write timeout duration
}

// KafkaPublisher publishes events as JSON messages keyed by the actor, so
// that the events of one user keep their order within a partition.
type KafkaPublisher struct {
	w MessageWriter
}

// NewKafkaPublisher creates a publisher writing to cfg.Topic.
func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	return NewPublisher(newKafkaWriter(cfg))
}

// newKafkaWriter returns a writer that sends every message right away.
// Events are published one at a time from request handlers, so waiting
// for a batch to fill would delay each of those requests.
func newKafkaWriter(cfg KafkaConfig) *kafka.Writer {
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              1,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// NewPublisher creates a publisher on top of an existing writer.
func NewPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.Itoa(e.ActorID)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	})
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.EventsPublished.WithLabelValues(e.Type, result).Inc()
	return err
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// NopPublisher drops every event. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, e Event) error { return nil }

func (NopPublisher) Close() error { return nil }

var (
	_ Publisher     = &KafkaPublisher{}
	_ Publisher     = NopPublisher{}
	_ MessageWriter = &kafka.Writer{}
)
