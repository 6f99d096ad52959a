//go:build integration
// +build integration

package kafka

import (
	"context"
	"time"

	"inviqa/request-basket/kafka"
	"inviqa/request-basket/log"

	"github.com/Shopify/sarama"
)

// ConsumeUntilFound reads topic from the oldest offset until every
// expectation has matched a message or the timeout passes.
func ConsumeUntilFound(hosts []string, topic string, exp []EventExpectation, timeout time.Duration) bool {
	toFind := make([]EventExpectation, len(exp))
	copy(toFind, exp)

	cons := &ConsumerHandler{
		Consume: func(consumed *sarama.ConsumerMessage) bool {
			j := 0
			for _, e := range toFind {
				if !e.Matches(consumed) {
					toFind[j] = e
					j++
				}
			}
			toFind = toFind[:j]
			return len(toFind) == 0
		},
	}

	scfg := kafka.NewSaramaConfig(false, false)
	scfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	cl, err := sarama.NewConsumerGroup(hosts, "request-basket-test", scfg)
	if err != nil {
		log.Logger.WithError(err).Panic("error occurred creating Kafka consumer group client")
	}
	defer func() {
		if err := cl.Close(); err != nil {
			log.Logger.WithError(err).Error("error occurred closing Kafka client")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	go func() {
		for ctx.Err() == nil {
			if err := cl.Consume(ctx, []string{topic}, cons); err != nil && ctx.Err() == nil {
				log.Logger.WithError(err).Error("error when consuming from Kafka")
			}
		}
	}()

	for ctx.Err() == nil {
		if cons.MessagesFound() {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}

	return cons.MessagesFound()
}
