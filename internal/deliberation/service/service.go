// Package service implements the deliberation orchestration operations:
// session lifecycle, round scheduling, group partitioning, and answer
// aggregation. The service is stateless per request; store uniqueness
// constraints are the serialization points for concurrent mutations.
package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/grousion/grousion/internal/deliberation/storage"
	apperrors "github.com/grousion/grousion/internal/errors"
	"github.com/grousion/grousion/internal/platform/id"
	"github.com/grousion/grousion/internal/platform/random"
	"github.com/grousion/grousion/internal/platform/retry"
)

// Entity labels carried by change signals. Clients re-read through the
// normal read path; signals carry no entity data.
const (
	EntitySession     = "session"
	EntityStatement   = "statement"
	EntityRound       = "round"
	EntityParticipant = "participant"
	EntityGroup       = "group"
	EntityAnswer      = "answer"
)

// EventPublisher receives change signals after successful mutations.
type EventPublisher interface {
	Publish(sessionID string, entity string)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, string) {}

// EligibilityPolicy selects which participants enter group formation.
type EligibilityPolicy int

const (
	// EligibilityPriorRoundRespondents restricts groups to participants who
	// answered the previous round. Rounds without a prior round fall back to
	// the full participant list.
	EligibilityPriorRoundRespondents EligibilityPolicy = iota
	// EligibilityAllParticipants admits every session participant.
	EligibilityAllParticipants
)

// Service orchestrates deliberation sessions over a persistence boundary.
type Service struct {
	store       storage.Store
	clock       func() time.Time
	newID       func() (string, error)
	rng         *rand.Rand
	eligibility EligibilityPolicy
	retryPolicy retry.Policy
	publisher   EventPublisher
}

// Options configures optional service collaborators. Zero values select
// production defaults.
type Options struct {
	Clock       func() time.Time
	IDGenerator func() (string, error)
	RNG         *rand.Rand
	Eligibility EligibilityPolicy
	Retry       *retry.Policy
	Publisher   EventPublisher
}

// New creates a deliberation service backed by the provided store.
func New(store storage.Store, opts Options) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := opts.IDGenerator
	if newID == nil {
		newID = id.NewID
	}
	rng := opts.RNG
	if rng == nil {
		rng = newSeededRNG()
	}
	retryPolicy := retry.DefaultPolicy()
	if opts.Retry != nil {
		retryPolicy = *opts.Retry
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Service{
		store:       store,
		clock:       clock,
		newID:       newID,
		rng:         rng,
		eligibility: opts.Eligibility,
		retryPolicy: retryPolicy,
		publisher:   publisher,
	}
}

func newSeededRNG() *rand.Rand {
	seed, err := random.NewSeed()
	if err != nil {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
}

// withRetry retries a store operation on transient backend failures only.
// Business-rule failures and conflicts pass through untouched.
func (s *Service) withRetry(ctx context.Context, op func() error) error {
	return s.retryPolicy.Do(ctx, isTransientStoreError, op)
}

func isTransientStoreError(err error) bool {
	return errors.Is(err, storage.ErrUnavailable)
}

func (s *Service) publish(sessionID string, entities ...string) {
	for _, entity := range entities {
		s.publisher.Publish(sessionID, entity)
	}
}

// mapStoreError converts storage sentinels into coded errors; other errors
// pass through for the transport edge to report as unknown.
func mapStoreError(err error, operation string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.Wrap(apperrors.CodeNotFound, operation+": record not found", err)
	case errors.Is(err, storage.ErrUnavailable):
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, operation+": storage unavailable", err)
	default:
		return err
	}
}
