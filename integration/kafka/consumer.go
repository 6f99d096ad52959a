//go:build integration
// +build integration

package kafka

import (
	"sync"

	"github.com/Shopify/sarama"
)

// ConsumerHandler hands every claimed message to Consume until it reports
// that everything expected has been seen.
type ConsumerHandler struct {
	mu            sync.Mutex
	messagesFound bool
	Consume       func(message *sarama.ConsumerMessage) bool
}

func (c *ConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if c.Consume(message) {
			c.mu.Lock()
			c.messagesFound = true
			c.mu.Unlock()
		}
		session.MarkMessage(message, "")
	}

	return nil
}

func (c *ConsumerHandler) MessagesFound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messagesFound
}

func (c *ConsumerHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (c *ConsumerHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}
