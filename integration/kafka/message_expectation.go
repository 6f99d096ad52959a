//go:build integration
// +build integration

package kafka

import (
	"bytes"
	"encoding/json"

	"inviqa/request-basket/basket"

	"github.com/Shopify/sarama"
)

// EventExpectation describes a mirrored event by the fields a test controls.
type EventExpectation struct {
	Endpoint string
	Method   string
	Body     string
}

func (e EventExpectation) Matches(msg *sarama.ConsumerMessage) bool {
	if !bytes.Equal(msg.Key, []byte(e.Endpoint)) {
		return false
	}

	var ev basket.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return false
	}

	return ev.Kind == basket.EventNewRequest &&
		ev.Data.Endpoint == e.Endpoint &&
		ev.Data.Method == e.Method &&
		ev.Data.Body != nil && *ev.Data.Body == e.Body
}
