package consumers

import (
	"fmt"

	"ceseminars/internal/logger"
	"ceseminars/internal/models"

	"github.com/nats-io/stan.go"
)

const queueGroup = "mailers"

// Subscriber is the broker side of the consumer service. *messaging.NATSClient implements it.
type Subscriber interface {
	SubscribeQueue(subject, queue string, handler stan.MsgHandler) (stan.Subscription, error)
}

type ConsumerService struct {
	broker   Subscriber
	handlers *Handlers
	subs     []stan.Subscription
}

func NewConsumerService(broker Subscriber, handlers *Handlers) *ConsumerService {
	return &ConsumerService{broker: broker, handlers: handlers}
}

// Start subscribes every notification handler in the mailers queue group
func (cs *ConsumerService) Start() error {
	logger.Get().Info("Starting NATS consumers...")

	routes := map[string]stan.MsgHandler{
		models.EventRegistrationCreated: handle(models.EventRegistrationCreated, cs.handlers.RegistrationCreated),
		models.EventMakeupSubmitted:     handle(models.EventMakeupSubmitted, cs.handlers.MakeupSubmitted),
		models.EventMakeupTransitioned:  handle(models.EventMakeupTransitioned, cs.handlers.MakeupTransitioned),
		models.EventCertificateIssued:   handle(models.EventCertificateIssued, cs.handlers.CertificateIssued),
	}
	for subject, handler := range routes {
		sub, err := cs.broker.SubscribeQueue(subject, queueGroup, handler)
		if err != nil {
			cs.Shutdown()
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		cs.subs = append(cs.subs, sub)
	}

	logger.Get().Info("All consumers started successfully", "subjects", len(routes))
	return nil
}

// Shutdown closes the subscriptions; durable queue positions survive
func (cs *ConsumerService) Shutdown() {
	logger.Get().Info("Shutting down consumer service...")
	for _, sub := range cs.subs {
		if err := sub.Close(); err != nil {
			logger.Get().Error("Error closing subscription", "error", err)
		}
	}
	cs.subs = nil
}
