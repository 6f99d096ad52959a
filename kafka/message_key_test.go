package kafka

import (
	"testing"
)

func TestMessageKey_KeyForPartitioning(t *testing.T) {
	t.Run("partition key set", func(t *testing.T) {
		got := MessageKey{Key: "c2f1e0d4", PartitionKey: "ab12xyz"}.KeyForPartitioning()
		if got != "ab12xyz" {
			t.Errorf("expected 'ab12xyz', got '%s'", got)
		}
	})

	t.Run("partition key not set", func(t *testing.T) {
		got := MessageKey{Key: "c2f1e0d4"}.KeyForPartitioning()
		if got != "c2f1e0d4" {
			t.Errorf("expected 'c2f1e0d4', got '%s'", got)
		}
	})
}

func TestNewMessageKey_EncodesRecordKey(t *testing.T) {
	b, err := newMessageKey("c2f1e0d4", "ab12xyz").Encode()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if string(b) != "c2f1e0d4" {
		t.Errorf("expected the record key to be encoded, got '%s'", b)
	}
}
