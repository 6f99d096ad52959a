package kafka

import (
	"github.com/Shopify/sarama"
)

// EndpointPartitioner keeps every event of a basket on one partition so
// consumers see them in capture order.
type EndpointPartitioner struct {
	topic           string
	hashPartitioner sarama.Partitioner
}

func NewEndpointPartitioner(topic string) sarama.Partitioner {
	return NewEndpointPartitionerWithCustomPartitioner(topic, sarama.NewHashPartitioner(topic))
}

func NewEndpointPartitionerWithCustomPartitioner(topic string, p sarama.Partitioner) sarama.Partitioner {
	return EndpointPartitioner{
		topic:           topic,
		hashPartitioner: p,
	}
}

func (o EndpointPartitioner) Partition(message *sarama.ProducerMessage, numPartitions int32) (int32, error) {
	mk, ok := message.Key.(MessageKey)
	if !ok {
		return o.hashPartitioner.Partition(message, numPartitions)
	}

	// the hash partitioner only understands plain encoders, so hand it the
	// partitioning key and restore the original key afterwards
	message.Key = sarama.StringEncoder(mk.KeyForPartitioning())

	ptn, err := o.hashPartitioner.Partition(message, numPartitions)

	message.Key = mk

	return ptn, err
}

func (o EndpointPartitioner) RequiresConsistency() bool {
	return true
}
