package blob

import (
	"net/http"
	"testing"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/pkg/errors"
)

func TestJoinKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "abc", want: "abc"},
		{name: "prefix", prefix: "bodies", key: "abc", want: "bodies/abc"},
		{name: "slashes are trimmed", prefix: "/bodies/", key: "/abc", want: "bodies/abc"},
		{name: "empty key", prefix: "bodies", key: "", want: "bodies"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinKey(tt.prefix, tt.key); got != tt.want {
				t.Errorf("JoinKey() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsOSSNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "no such key", err: oss.ServiceError{Code: "NoSuchKey", StatusCode: http.StatusNotFound}, want: true},
		{name: "pointer error", err: &oss.ServiceError{StatusCode: http.StatusNotFound}, want: true},
		{name: "wrapped", err: errors.Wrap(oss.ServiceError{Code: "NoSuchKey"}, "get"), want: true},
		{name: "access denied", err: oss.ServiceError{Code: "AccessDenied", StatusCode: http.StatusForbidden}, want: false},
		{name: "other", err: errors.New("oops"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isOSSNotFound(tt.err); got != tt.want {
				t.Errorf("isOSSNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewOSSStore_MissingConfig(t *testing.T) {
	if _, err := NewOSSStore(OSSConfig{Endpoint: "oss-cn-hangzhou.aliyuncs.com"}); err == nil {
		t.Error("expected an error but got nil")
	}
}
