//go:build benchmarks
// +build benchmarks

package kafka

import (
	"sync/atomic"

	"inviqa/request-basket/kafka"

	"github.com/Shopify/sarama"
)

// SyncProducer forwards to a real producer and counts the events it mirrored.
type SyncProducer struct {
	realSyncProducer sarama.SyncProducer
	msgsPublished    int64
}

func NewSyncProducer(kafkaHost []string) *SyncProducer {
	rp, err := sarama.NewSyncProducer(kafkaHost, kafka.NewSaramaConfig(false, false))
	if err != nil {
		panic(err)
	}

	return &SyncProducer{
		realSyncProducer: rp,
	}
}

func (sp *SyncProducer) GetMessagesPublishedCount() int {
	return int(atomic.LoadInt64(&sp.msgsPublished))
}

func (sp *SyncProducer) ResetMessagesPublishedCount() {
	atomic.StoreInt64(&sp.msgsPublished, 0)
}

func (sp *SyncProducer) SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error) {
	pt, off, err := sp.realSyncProducer.SendMessage(msg)
	atomic.AddInt64(&sp.msgsPublished, 1)

	return pt, off, err
}

func (sp *SyncProducer) SendMessages(msgs []*sarama.ProducerMessage) error {
	return sp.realSyncProducer.SendMessages(msgs)
}

func (sp *SyncProducer) Close() error {
	return sp.realSyncProducer.Close()
}
