package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ceseminars/internal/logger"

	"github.com/google/uuid"
	"github.com/nats-io/stan.go"
)

var ErrNotConnected = errors.New("nats streaming connection is not established")

// NATSClient publishes domain events as JSON and hands out durable queue
// subscriptions to the notification consumers.
type NATSClient struct {
	conn stan.Conn
	cfg  Config
}

type Config struct {
	URL       string
	ClusterID string
	ClientID  string

	// AckWait is how long the server waits before redelivering an unacked message
	AckWait     time.Duration
	MaxInflight int
}

func (c Config) withDefaults() Config {
	if c.AckWait <= 0 {
		c.AckWait = 30 * time.Second
	}
	if c.MaxInflight <= 0 {
		c.MaxInflight = 1
	}
	return c
}

func NewNATSClient(cfg Config) (*NATSClient, error) {
	// unique per connection; replicas of one binary share the prefix
	clientID := fmt.Sprintf("%s-%s", cfg.ClientID, uuid.New().String()[:8])

	conn, err := stan.Connect(cfg.ClusterID, clientID,
		stan.NatsURL(cfg.URL),
		stan.Pings(10, 6),
		stan.SetConnectionLostHandler(func(_ stan.Conn, reason error) {
			logger.Get().Error("NATS Streaming connection lost", "error", reason, "client_id", clientID)
		}))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS Streaming: %w", err)
	}

	logger.Get().Info("Connected to NATS Streaming",
		"url", cfg.URL,
		"cluster_id", cfg.ClusterID,
		"client_id", clientID)

	return newClient(conn, cfg), nil
}

func newClient(conn stan.Conn, cfg Config) *NATSClient {
	return &NATSClient{conn: conn, cfg: cfg.withDefaults()}
}

// Publish marshals data to JSON and waits for the server ack
func (nc *NATSClient) Publish(subject string, data interface{}) error {
	if nc == nil || nc.conn == nil {
		return ErrNotConnected
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", subject, err)
	}
	if err := nc.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}

	logger.Get().Debug("Published message", "subject", subject, "bytes", len(payload))
	return nil
}

// DurableName is the durable subscription name for subject within queue
func DurableName(subject, queue string) string {
	return subject + "-" + queue + "-durable"
}

// SubscribeQueue delivers each message to one member of the queue group.
// Messages are acked manually so a failing handler gets a redelivery.
func (nc *NATSClient) SubscribeQueue(subject, queue string, handler stan.MsgHandler) (stan.Subscription, error) {
	if nc == nil || nc.conn == nil {
		return nil, ErrNotConnected
	}

	sub, err := nc.conn.QueueSubscribe(subject, queue, handler,
		stan.DurableName(DurableName(subject, queue)),
		stan.SetManualAckMode(),
		stan.AckWait(nc.cfg.AckWait),
		stan.MaxInflight(nc.cfg.MaxInflight))
	if err != nil {
		return nil, fmt.Errorf("failed to queue subscribe to subject %s: %w", subject, err)
	}

	logger.Get().Info("Subscribed to subject",
		"subject", subject, "queue", queue, "ack_wait", nc.cfg.AckWait, "max_inflight", nc.cfg.MaxInflight)
	return sub, nil
}

func (nc *NATSClient) Close() error {
	if nc != nil && nc.conn != nil {
		return nc.conn.Close()
	}
	return nil
}
