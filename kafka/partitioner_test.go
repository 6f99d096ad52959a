package kafka

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Shopify/sarama"
	"github.com/go-test/deep"
)

func TestNewEndpointPartitioner(t *testing.T) {
	got := NewEndpointPartitioner("basket-events")

	op := got.(EndpointPartitioner)
	if op.topic != "basket-events" {
		t.Errorf("expected 'basket-events' as topic but got '%s'", op.topic)
	}
}

func TestNewEndpointPartitionerWithCustomPartitioner(t *testing.T) {
	deep.CompareUnexportedFields = true
	defer func() {
		deep.CompareUnexportedFields = false
	}()

	fp := newFakeHashPartitioner(false)
	got := NewEndpointPartitionerWithCustomPartitioner("bar", fp)

	exp := EndpointPartitioner{
		topic:           "bar",
		hashPartitioner: fp,
	}

	if diff := deep.Equal(exp, got); diff != nil {
		t.Error(diff)
	}
}

func TestEndpointPartitioner_Partition(t *testing.T) {
	tests := []struct {
		name          string
		key           sarama.Encoder
		partition     int32
		expHashedWith string
	}{
		{
			name:          "endpoint is hashed instead of the record key",
			key:           newMessageKey("c2f1e0d4", "ab12xyz"),
			partition:     9,
			expHashedWith: "ab12xyz",
		},
		{
			name:          "record key is hashed when no endpoint is set",
			key:           newMessageKey("c2f1e0d4", ""),
			partition:     3,
			expHashedWith: "c2f1e0d4",
		},
		{
			name:          "plain keys are left to the hash partitioner",
			key:           sarama.StringEncoder("raw"),
			partition:     1,
			expHashedWith: "raw",
		},
		{
			name:      "nil key is left to the hash partitioner",
			partition: 0,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fp := newFakeHashPartitioner(false)
			fp.partitionToReturn = tt.partition
			ep := NewEndpointPartitionerWithCustomPartitioner("basket-events", fp)
			msg := &sarama.ProducerMessage{Key: tt.key}

			got, err := ep.Partition(msg, 10)
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}

			if got != tt.partition {
				t.Errorf("expected partition %d but got %d", tt.partition, got)
			}

			if fp.recvdMessageKey != tt.expHashedWith {
				t.Errorf("expected '%s' to be hashed, but was '%s' instead", tt.expHashedWith, fp.recvdMessageKey)
			}

			if !reflect.DeepEqual(msg.Key, tt.key) {
				t.Error("expected the message key to be reset on the message")
			}
		})
	}
}

func TestEndpointPartitioner_PartitionError(t *testing.T) {
	fp := newFakeHashPartitioner(true)
	ep := NewEndpointPartitionerWithCustomPartitioner("basket-events", fp)
	msg := &sarama.ProducerMessage{Key: newMessageKey("c2f1e0d4", "ab12xyz")}

	if _, err := ep.Partition(msg, 2); err == nil {
		t.Error("expected an error but got nil")
	}
}

func TestEndpointPartitioner_RequiresConsistency(t *testing.T) {
	if !(EndpointPartitioner{}).RequiresConsistency() {
		t.Error("expected EndpointPartitioner to require consistency, but it does not")
	}
}

func newFakeHashPartitioner(error bool) *fakeHashPartitioner {
	return &fakeHashPartitioner{
		returnError: error,
	}
}

type fakeHashPartitioner struct {
	recvdMessageKey    string
	recvdNumPartitions int32
	returnError        bool
	partitionToReturn  int32
}

func (fp *fakeHashPartitioner) Partition(message *sarama.ProducerMessage, numPartitions int32) (int32, error) {
	if message.Key != nil {
		key, err := message.Key.Encode()
		if err != nil {
			return 0, err
		}
		fp.recvdMessageKey = string(key)
	}

	fp.recvdNumPartitions = numPartitions

	if fp.returnError {
		return 0, errors.New("oops")
	}
	return fp.partitionToReturn, nil
}

func (fp *fakeHashPartitioner) RequiresConsistency() bool {
	return false
}
