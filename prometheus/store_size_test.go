package prometheus

import (
	"context"
	"testing"
	"time"

	"inviqa/request-basket/basket/test"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveStore(t *testing.T) {
	repo := test.NewMockRepository()
	repo.AddBasket("ab12xyz", time.Now())
	repo.AddBasket("cd34uvw", time.Now())
	_, _ = repo.AddConnection(context.Background(), "c1", "ab12xyz", time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	ObserveStore(repo, ctx)
	time.Sleep(time.Millisecond * 100)
	cancel()

	if actual := testutil.ToFloat64(basketCount); actual != 2.00 {
		t.Errorf("expected basketCount to be 2.000000, but got %f", actual)
	}
	if actual := testutil.ToFloat64(requestCount); actual != 0.00 {
		t.Errorf("expected requestCount to be 0.000000, but got %f", actual)
	}
	if actual := testutil.ToFloat64(connectionCount); actual != 1.00 {
		t.Errorf("expected connectionCount to be 1.000000, but got %f", actual)
	}
}

func TestObserveBasketCount_WithRepositoryError(t *testing.T) {
	basketCount.Set(0.0)
	repo := test.NewMockRepository()
	repo.AddBasket("ab12xyz", time.Now())
	repo.ReturnErrors()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ObserveBasketCount(repo, ctx)
		close(done)
	}()
	time.Sleep(time.Millisecond * 100)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * observeInterval):
		t.Fatal("expected the observer to stop once the context was cancelled")
	}

	if actual := testutil.ToFloat64(basketCount); actual != 0.00 {
		t.Errorf("expected basketCount to be 0.000000, but got %f", actual)
	}
}
