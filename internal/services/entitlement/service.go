package entitlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/juridico/internal/lib/metrics"
	"github.com/magabrotheeeer/juridico/internal/lib/sl"
	"github.com/magabrotheeeer/juridico/internal/models"
)

const (
	cacheKeyPrefix = "entitlement:user:"
	cacheTTL       = time.Minute
)

// UserRepository источник данных о подписчиках.
type UserRepository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Cache кеш профилей подписчиков.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Service применяет CheckAccess к подписчику из хранилища.
type Service struct {
	repo  UserRepository
	cache Cache
	now   func() time.Time
	log   *slog.Logger
}

// Option настраивает Service.
type Option func(*Service)

// WithCache включает кеширование профилей. Ошибки кеша не влияют на решение.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService создает новый экземпляр Service.
func NewService(repo UserRepository, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now:  time.Now,
		log:  log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check возвращает nil, если доступ разрешён, *DeniedError при отказе
// и обычную ошибку при сбое хранилища.
func (s *Service) Check(ctx context.Context, userID uuid.UUID) error {
	const op = "entitlement.Check"

	user, err := s.loadUser(ctx, userID)
	if errors.Is(err, ErrSubscriberNotFound) {
		metrics.EntitlementDecisions.WithLabelValues(string(ReasonNotFound)).Inc()
		return &DeniedError{Reason: ReasonNotFound, Err: ErrSubscriberNotFound}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	decision := CheckAccess(user, s.now())
	if !decision.Allowed {
		metrics.EntitlementDecisions.WithLabelValues(string(decision.Reason)).Inc()
		return &DeniedError{Reason: decision.Reason}
	}
	metrics.EntitlementDecisions.WithLabelValues("ALLOWED").Inc()
	return nil
}

func (s *Service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	key := cacheKeyPrefix + userID.String()
	if s.cache != nil {
		var cached models.User
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("entitlement cache get failed", slog.String("key", key), sl.Err(err))
		} else if found {
			return &cached, nil
		}
	}

	user, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriberNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, user, cacheTTL); err != nil {
			s.log.Warn("entitlement cache set failed", slog.String("key", key), sl.Err(err))
		}
	}
	return user, nil
}
