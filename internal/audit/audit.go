// Package audit writes the trail of collaboration status changes.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
)

// Event is one status change.
type Event struct {
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Action     string    `json:"action"`
	ActorID    string    `json:"actor_id,omitempty"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to"`
	Version    int64     `json:"version"`
	At         time.Time `json:"at"`
}

// ElasticRecorder indexes events into Elasticsearch.
type ElasticRecorder struct {
	client *elasticsearch.Client
	index  string
	logger *zap.Logger
}

// ElasticConfig holds connection settings.
type ElasticConfig struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

// NewElasticRecorder creates a recorder for the given cluster.
func NewElasticRecorder(cfg ElasticConfig, logger *zap.Logger) (*ElasticRecorder, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return NewElasticRecorderWithClient(client, cfg.Index, logger), nil
}

// NewElasticRecorderWithClient wraps an existing client.
func NewElasticRecorderWithClient(client *elasticsearch.Client, index string, logger *zap.Logger) *ElasticRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ElasticRecorder{client: client, index: index, logger: logger}
}

// Record indexes one event. The document id is entity id plus version, so a
// retried write overwrites rather than duplicates.
func (r *ElasticRecorder) Record(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(body),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(fmt.Sprintf("%s-%d", event.EntityID, event.Version)),
	)
	if err != nil {
		return fmt.Errorf("failed to index audit event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("audit index returned %s: %s", res.Status(), string(msg))
	}

	r.logger.Debug("audit event indexed",
		zap.String("entity_id", event.EntityID),
		zap.String("action", event.Action),
		zap.String("to", event.To))
	return nil
}

// LogRecorder writes events to the structured log only.
type LogRecorder struct {
	logger *zap.Logger
}

// NewLogRecorder creates a log-only recorder.
func NewLogRecorder(logger *zap.Logger) *LogRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) Record(_ context.Context, event Event) error {
	r.logger.Info("audit",
		zap.String("entity_type", event.EntityType),
		zap.String("entity_id", event.EntityID),
		zap.String("action", event.Action),
		zap.String("actor_id", event.ActorID),
		zap.String("from", event.From),
		zap.String("to", event.To),
		zap.Int64("version", event.Version),
		zap.Time("at", event.At))
	return nil
}
