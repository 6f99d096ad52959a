package basket

import (
	"encoding/json"
	"time"
)

const EventNewRequest = "new_request"

type Basket struct {
	ID        int64
	Endpoint  string
	CreatedAt time.Time
}

// Request is the metadata half of a captured HTTP call. The raw body lives in
// the blob store under BodyRef.
type Request struct {
	ID        int64
	Timestamp time.Time
	Method    string
	Headers   map[string]string
	BodyRef   string
}

// RequestView is a Request with its body resolved from the blob store. HasBody
// is false when the referenced blob no longer exists.
type RequestView struct {
	ID        int64
	Timestamp time.Time
	Method    string
	Headers   map[string]string
	Body      []byte
	HasBody   bool
}

type requestViewJSON struct {
	ID        int64             `json:"id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	Body      *string           `json:"body"`
}

func (v RequestView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.toJSON())
}

func (v RequestView) toJSON() requestViewJSON {
	out := requestViewJSON{
		ID:        v.ID,
		Timestamp: v.Timestamp,
		Method:    v.Method,
		Headers:   v.Headers,
	}
	if out.Headers == nil {
		out.Headers = map[string]string{}
	}
	if v.HasBody {
		body := string(v.Body)
		out.Body = &body
	}
	return out
}

func newRequestView(r *Request) *RequestView {
	return &RequestView{
		ID:        r.ID,
		Timestamp: r.Timestamp,
		Method:    r.Method,
		Headers:   r.Headers,
	}
}

// Event is the envelope pushed to every subscriber of a basket.
type Event struct {
	Kind string    `json:"kind"`
	Data EventData `json:"data"`
}

type EventData struct {
	Timestamp time.Time         `json:"timestamp"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	Body      *string           `json:"body"`
	Endpoint  string            `json:"endpoint"`
}

func NewRequestEvent(endpoint string, v *RequestView) Event {
	j := v.toJSON()
	return Event{
		Kind: EventNewRequest,
		Data: EventData{
			Timestamp: j.Timestamp,
			Method:    j.Method,
			Headers:   j.Headers,
			Body:      j.Body,
			Endpoint:  endpoint,
		},
	}
}
