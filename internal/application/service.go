package application

import (
	"time"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
	"go.uber.org/zap"
)

// Recorder receives workflow and download events for metrics.
type Recorder interface {
	ObserveTransition(from, to domain.ItemStatus)
	ObserveDownload()
}

type nopRecorder struct{}

func (nopRecorder) ObserveTransition(from, to domain.ItemStatus) {}
func (nopRecorder) ObserveDownload()                             {}

// Service holds every use case of the repository. Methods that act on behalf
// of a user take the actor explicitly; nil means anonymous.
type Service struct {
	repo     domain.Repository
	files    domain.FileStore
	sessions domain.SessionSigner
	log      *zap.Logger
	now      func() time.Time
	recorder Recorder
}

type Option func(*Service)

// WithClock replaces the time source used for statistics windows and
// token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithRecorder(recorder Recorder) Option {
	return func(s *Service) { s.recorder = recorder }
}

func NewService(repo domain.Repository, files domain.FileStore, sessions domain.SessionSigner, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		files:    files,
		sessions: sessions,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MetadataRegistry lists the known metadata fields in display order.
func (s *Service) MetadataRegistry() []domain.FieldDescriptor {
	return domain.RegisteredFields()
}

func requireLogin(actor *domain.Identity) error {
	if actor == nil || actor.UserID == 0 {
		return domain.ErrUnauthorized.New("login required")
	}
	return nil
}

func clampLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}

func pageNumber(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
