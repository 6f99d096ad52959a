package http

import (
	"net/http"
	"strings"
)

const maxEndpointLength = 100

var reservedEndpoints = map[string]bool{
	"api": true,
	"web": true,
}

type endpointError struct {
	status  int
	message string
}

func (e *endpointError) Error() string {
	return e.message
}

// validateEndpoint checks the shape of a basket token before it reaches the
// basket service, which assumes it is well formed.
func validateEndpoint(endpoint string) *endpointError {
	if len(endpoint) > maxEndpointLength {
		return &endpointError{http.StatusRequestURITooLong, "endpoint length cannot exceed 100 characters"}
	}
	if endpoint == "" || !isAlphanumeric(endpoint) {
		return &endpointError{http.StatusBadRequest, "endpoint can only contain alphanumeric characters"}
	}
	if reservedEndpoints[strings.ToLower(endpoint)] {
		return &endpointError{http.StatusForbidden, "endpoint conflicts with a reserved system path"}
	}

	return nil
}

func isAlphanumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
