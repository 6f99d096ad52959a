package basket

import (
	"context"
	"crypto/rand"
	"io"

	"inviqa/request-basket/log"

	"github.com/pkg/errors"
)

const (
	TokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	TokenLength   = 7

	// largest multiple of len(TokenAlphabet) that fits in a byte, bytes above
	// it are rejected to keep the draw uniform
	tokenRejectFrom = 252
)

type existenceChecker interface {
	BasketExists(ctx context.Context, endpoint string) (bool, error)
}

// Allocator draws random endpoint tokens until it finds one that is not taken.
// It does not reserve the token, Service.Create arbitrates concurrent use.
type Allocator struct {
	repo     existenceChecker
	attempts int
	random   io.Reader
}

func NewAllocator(repo existenceChecker, attempts int) *Allocator {
	return NewAllocatorWithSource(repo, attempts, rand.Reader)
}

func NewAllocatorWithSource(repo existenceChecker, attempts int, random io.Reader) *Allocator {
	if attempts < 1 {
		attempts = 1
	}

	return &Allocator{
		repo:     repo,
		attempts: attempts,
		random:   random,
	}
}

func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	for i := 0; i < a.attempts; i++ {
		token, err := NewToken(a.random)
		if err != nil {
			return "", errors.Wrap(err, "basket: unable to draw a random token")
		}

		exists, err := a.repo.BasketExists(ctx, token)
		if err != nil {
			return "", storeError("allocate endpoint", err)
		}

		if !exists {
			return token, nil
		}

		log.Logger.WithField("endpoint", token).Debug("drawn endpoint token is already taken, drawing again")
	}

	return "", ErrAllocationExhausted
}

// NewToken reads from r until it has TokenLength characters of TokenAlphabet.
func NewToken(r io.Reader) (string, error) {
	token := make([]byte, 0, TokenLength)
	buf := make([]byte, TokenLength*2)

	for len(token) < TokenLength {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}

		for _, b := range buf {
			if b >= tokenRejectFrom {
				continue
			}
			token = append(token, TokenAlphabet[int(b)%len(TokenAlphabet)])
			if len(token) == TokenLength {
				break
			}
		}
	}

	return string(token), nil
}
