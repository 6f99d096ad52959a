package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestResolveLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    logrus.Level
		wantErr bool
	}{
		{name: "empty falls back to default", in: "", want: defaultLevel},
		{name: "debug", in: "debug", want: logrus.DebugLevel},
		{name: "info", in: "INFO", want: logrus.InfoLevel},
		{name: "invalid level", in: "loud", want: defaultLevel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveLogLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("resolveLogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewLogger_WritesJSONWithServiceField(t *testing.T) {
	buf := &bytes.Buffer{}
	l := newLogger("info", "", buf)

	l.WithField("endpoint", "ab12xyz").Info("basket created")

	entry := map[string]interface{}{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %s", buf.String(), err)
	}

	if entry["service"] != serviceName {
		t.Errorf("expected service field %q, got %v", serviceName, entry["service"])
	}
	if entry["endpoint"] != "ab12xyz" {
		t.Errorf("expected endpoint field to be kept, got %v", entry["endpoint"])
	}
}

func TestNewLogger_TextFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	l := newLogger("info", "text", buf)
	l.Info("hello")

	if json.Valid(buf.Bytes()) {
		t.Errorf("expected text output but got JSON: %s", buf.String())
	}
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := newLogger("error", "", buf)
	l.Info("should be filtered")

	if buf.Len() != 0 {
		t.Errorf("expected info entry to be filtered at error level, got %s", buf.String())
	}
}
