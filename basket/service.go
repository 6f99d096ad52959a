package basket

import (
	"context"
	"time"

	"inviqa/request-basket/blob"
	"inviqa/request-basket/log"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type repository interface {
	existenceChecker
	CreateBasket(ctx context.Context, endpoint string, createdAt time.Time) error
	DeleteBasket(ctx context.Context, endpoint string) (int64, error)
	ExpiredBaskets(ctx context.Context, olderThan time.Time) ([]string, error)
	InsertRequest(ctx context.Context, endpoint string, req *Request) (int64, error)
	Requests(ctx context.Context, endpoint string) ([]*Request, error)
	DeleteRequests(ctx context.Context, endpoint string, maxID int64) (int64, error)
}

// Dispatcher hands a captured request over for delivery to subscribers. It
// must not block the caller.
type Dispatcher interface {
	Dispatch(endpoint string, view *RequestView)
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(string, *RequestView) {}

// Service coordinates the metadata store and the blob store. On write the
// blob goes first, on cleanup blobs are removed before rows, so a row never
// references a body that was never stored.
type Service struct {
	repo       repository
	blobs      blob.Store
	dispatcher Dispatcher
	now        func() time.Time
}

func NewService(repo repository, blobs blob.Store, d Dispatcher) *Service {
	return NewServiceWithClock(repo, blobs, d, time.Now)
}

func NewServiceWithClock(repo repository, blobs blob.Store, d Dispatcher, now func() time.Time) *Service {
	if d == nil {
		d = noopDispatcher{}
	}

	return &Service{
		repo:       repo,
		blobs:      blobs,
		dispatcher: d,
		now:        now,
	}
}

func (s *Service) Exists(ctx context.Context, endpoint string) (bool, error) {
	exists, err := s.repo.BasketExists(ctx, endpoint)
	if err != nil {
		return false, storeError("check basket", err)
	}

	return exists, nil
}

func (s *Service) Create(ctx context.Context, endpoint string) error {
	exists, err := s.Exists(ctx, endpoint)
	if err != nil {
		return err
	}
	if exists {
		return ErrConflict
	}

	if err := s.repo.CreateBasket(ctx, endpoint, s.timestamp()); err != nil {
		if errors.Is(err, ErrConflict) {
			return ErrConflict
		}
		return storeError("create basket", err)
	}

	log.Logger.WithField("endpoint", endpoint).Info("basket created")

	return nil
}

// ListRequests returns the basket's requests newest first with their bodies
// resolved. A body missing from the blob store is reported as absent instead
// of failing the listing.
func (s *Service) ListRequests(ctx context.Context, endpoint string) ([]*RequestView, error) {
	reqs, err := s.requestsOf(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	views := make([]*RequestView, 0, len(reqs))
	for _, r := range reqs {
		v := newRequestView(r)
		if r.BodyRef != "" {
			body, err := s.blobs.Get(ctx, r.BodyRef)
			switch {
			case errors.Is(err, blob.ErrNotFound):
				log.Logger.WithFields(logrus.Fields{"endpoint": endpoint, "request_id": r.ID, "body_ref": r.BodyRef}).
					Warn("request body is missing from the blob store")
			case err != nil:
				return nil, storeError("fetch request body", err)
			default:
				v.Body = body
				v.HasBody = true
			}
		}
		views = append(views, v)
	}

	return views, nil
}

// Clear removes every request the basket holds at the time of the call.
// Requests captured while the clear is running are left alone.
func (s *Service) Clear(ctx context.Context, endpoint string) error {
	reqs, err := s.requestsOf(ctx, endpoint)
	if err != nil {
		return err
	}

	if err := s.deleteBodies(ctx, reqs); err != nil {
		return err
	}

	if len(reqs) == 0 {
		return nil
	}

	n, err := s.repo.DeleteRequests(ctx, endpoint, maxRequestID(reqs))
	if err != nil {
		return storeError("delete requests", err)
	}

	log.Logger.WithFields(logrus.Fields{"endpoint": endpoint, "deleted": n}).Info("basket cleared")

	return nil
}

func (s *Service) Delete(ctx context.Context, endpoint string) error {
	reqs, err := s.requestsOf(ctx, endpoint)
	if err != nil {
		return err
	}

	if err := s.deleteBodies(ctx, reqs); err != nil {
		return err
	}

	n, err := s.repo.DeleteBasket(ctx, endpoint)
	if err != nil {
		return storeError("delete basket", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	log.Logger.WithField("endpoint", endpoint).Info("basket deleted")

	return nil
}

// Capture persists a request against the basket and hands it to the
// dispatcher. The capture succeeds once both stores have accepted it,
// whatever happens to the notification.
func (s *Service) Capture(ctx context.Context, endpoint, method string, headers map[string]string, body []byte) error {
	exists, err := s.Exists(ctx, endpoint)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	ref, err := s.blobs.Put(ctx, body)
	if err != nil {
		return storeError("store request body", err)
	}

	if headers == nil {
		headers = map[string]string{}
	}

	req := &Request{
		Timestamp: s.timestamp(),
		Method:    method,
		Headers:   headers,
		BodyRef:   ref,
	}

	n, err := s.repo.InsertRequest(ctx, endpoint, req)
	if err != nil {
		s.discardBody(ctx, endpoint, ref)
		return storeError("insert request", err)
	}
	if n == 0 {
		s.discardBody(ctx, endpoint, ref)
		return ErrNotFound
	}

	log.Logger.WithFields(logrus.Fields{"endpoint": endpoint, "method": method}).Debug("request captured")

	view := newRequestView(req)
	view.Body = body
	view.HasBody = true
	s.dispatcher.Dispatch(endpoint, view)

	return nil
}

// Expire deletes every basket created before olderThan and returns how many
// were removed.
func (s *Service) Expire(ctx context.Context, olderThan time.Time) (int, error) {
	endpoints, err := s.repo.ExpiredBaskets(ctx, olderThan)
	if err != nil {
		return 0, storeError("list expired baskets", err)
	}

	var deleted int
	for _, endpoint := range endpoints {
		err := s.Delete(ctx, endpoint)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return deleted, err
		}
		deleted++
	}

	return deleted, nil
}

func (s *Service) requestsOf(ctx context.Context, endpoint string) ([]*Request, error) {
	exists, err := s.Exists(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	reqs, err := s.repo.Requests(ctx, endpoint)
	if err != nil {
		return nil, storeError("fetch requests", err)
	}

	return reqs, nil
}

// deleteBodies stops at the first failure so no row is removed while its
// body may still exist.
func (s *Service) deleteBodies(ctx context.Context, reqs []*Request) error {
	for _, r := range reqs {
		if r.BodyRef == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, r.BodyRef); err != nil {
			return storeError("delete request body", err)
		}
	}

	return nil
}

func (s *Service) discardBody(ctx context.Context, endpoint, ref string) {
	if err := s.blobs.Delete(ctx, ref); err != nil {
		log.Logger.WithFields(logrus.Fields{"endpoint": endpoint, "body_ref": ref}).WithError(err).
			Error("unable to remove the body of a request that was not recorded")
	}
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func maxRequestID(reqs []*Request) int64 {
	var maxID int64
	for _, r := range reqs {
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	return maxID
}
