package kafka

import (
	"io"

	"inviqa/request-basket/log"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	HeaderEventKind = "x-event-kind"
	HeaderEndpoint  = "x-basket-endpoint"
)

type Publisher interface {
	io.Closer
	PublishEvent(endpoint, kind string, payload []byte) error
}

type publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// PublishEvent mirrors an event onto the events topic, keyed by the basket
// endpoint.
func (p publisher) PublishEvent(endpoint, kind string, payload []byte) error {
	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     newMessageKey(endpoint, endpoint),
		Headers: createRecordHeaders(endpoint, kind),
		Value:   sarama.ByteEncoder(payload),
	})

	if err != nil {
		wrapErr := errors.Wrap(err, "error producing event in Kafka")
		log.Logger.WithField("endpoint", endpoint).Error(wrapErr)
		return wrapErr
	}

	log.Logger.WithFields(logrus.Fields{
		"topic":     p.topic,
		"partition": partition,
		"offset":    offset,
	}).Debug("produced event in Kafka")

	return nil
}

func NewPublisher(kafkaHosts []string, topic string, cfg *sarama.Config) (Publisher, error) {
	producer, err := sarama.NewSyncProducer(kafkaHosts, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "could not start kafka producer")
	}

	return NewPublisherWithProducer(producer, topic), nil
}

func NewPublisherWithProducer(prod sarama.SyncProducer, topic string) Publisher {
	return &publisher{
		producer: prod,
		topic:    topic,
	}
}

func (p publisher) Close() error {
	return p.producer.Close()
}

func createRecordHeaders(endpoint, kind string) []sarama.RecordHeader {
	recs := []sarama.RecordHeader{}
	if kind != "" {
		recs = append(recs, sarama.RecordHeader{Key: []byte(HeaderEventKind), Value: []byte(kind)})
	}
	if endpoint != "" {
		recs = append(recs, sarama.RecordHeader{Key: []byte(HeaderEndpoint), Value: []byte(endpoint)})
	}

	return recs
}
