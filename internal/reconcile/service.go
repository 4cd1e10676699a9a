// Package reconcile coordinates the directory, the member lists and the
// invitation ledger. It is the only writer that keeps member lists and
// invitation records consistent with each other.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/narvanalabs/boardroom/internal/directory"
	"github.com/narvanalabs/boardroom/internal/events"
	"github.com/narvanalabs/boardroom/internal/invitation"
	"github.com/narvanalabs/boardroom/internal/membership"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/narvanalabs/boardroom/internal/reconcile"

// Config tunes the service.
type Config struct {
	// CascadeConcurrency bounds how many boards are processed at once when a
	// workspace membership ends.
	CascadeConcurrency int
	// LedgerRetryAttempts bounds retries of best-effort ledger bookkeeping.
	LedgerRetryAttempts uint
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() Config {
	return Config{
		CascadeConcurrency:  4,
		LedgerRetryAttempts: 3,
	}
}

// Service is the entry point for invite, accept, decline, cancel, remove
// and leave operations.
type Service struct {
	store     store.Store
	directory *directory.Directory
	members   *membership.Store
	ledger    *invitation.Ledger
	events    events.Publisher
	tracer    trace.Tracer
	cfg       Config
	logger    *slog.Logger
}

// NewService creates a reconciliation service over st. A nil publisher
// discards events.
func NewService(st store.Store, dir *directory.Directory, publisher events.Publisher, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.Discard
	}
	if cfg.CascadeConcurrency <= 0 {
		cfg.CascadeConcurrency = DefaultConfig().CascadeConcurrency
	}
	if cfg.LedgerRetryAttempts == 0 {
		cfg.LedgerRetryAttempts = DefaultConfig().LedgerRetryAttempts
	}
	return &Service{
		store:     st,
		directory: dir,
		members:   membership.New(st, logger),
		ledger:    invitation.New(st, logger),
		events:    publisher,
		tracer:    otel.Tracer(tracerName),
		cfg:       cfg,
		logger:    logger.With("component", "reconcile"),
	}
}

// Ledger exposes the invitation ledger for read paths.
func (s *Service) Ledger() *invitation.Ledger {
	return s.ledger
}

// Members exposes the membership store for read paths and access checks.
func (s *Service) Members() *membership.Store {
	return s.members
}

// startSpan opens a span for a public operation.
func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "reconcile."+name, trace.WithAttributes(attrs...))
}

// finishSpan records err on span and ends it.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.kind", string(models.KindOf(err))))
	}
	span.End()
}

func containerAttrs(ref models.ContainerRef) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("container.type", string(ref.Type)),
		attribute.String("container.id", ref.ID),
	}
}

// bookkeep runs a best-effort ledger write, retrying transient store failures.
func (s *Service) bookkeep(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(s.cfg.LedgerRetryAttempts),
		retry.Delay(10*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(models.Retryable),
	)
}

func (s *Service) publish(t models.EventType, userID, actorID string, ref models.ContainerRef, invitationID string) {
	if userID == "" || userID == actorID {
		return
	}
	s.events.Publish(&models.Event{
		Type:          t,
		UserID:        userID,
		ActorUserID:   actorID,
		ContainerType: ref.Type,
		ContainerID:   ref.ID,
		InvitationID:  invitationID,
		OccurredAt:    time.Now().UTC(),
	})
}

// loadContainer validates ref and loads the container.
func (s *Service) loadContainer(ctx context.Context, ref models.ContainerRef) (*models.Container, error) {
	if !ref.Type.Valid() {
		return nil, models.ErrInvalidContainerType
	}
	c, err := s.members.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func describe(ref models.ContainerRef) string {
	return fmt.Sprintf("%s %s", ref.Type, ref.ID)
}
