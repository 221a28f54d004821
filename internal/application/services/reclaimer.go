package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/providers"
	"github.com/zatekoja/slotbooking/internal/domain/repositories"
	"github.com/zatekoja/slotbooking/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
)

const reclaimLeaseKey = "booking-reclaimer"

// ReclaimerConfig controls the reclamation sweep
type ReclaimerConfig struct {
	// Schedule is a cron spec, "@every 1m" by default
	Schedule string
	// UnpaidExpiry is how long an unpaid booking may hold its slot
	UnpaidExpiry time.Duration
	// BatchSize caps the bookings examined per tick
	BatchSize int
	// LeaseTTL bounds how long one replica holds the sweep lease
	LeaseTTL time.Duration
}

// ReclaimReport summarizes one sweep
type ReclaimReport struct {
	Cutoff    time.Time `json:"cutoff"`
	Scanned   int       `json:"scanned"`
	Reclaimed int       `json:"reclaimed"`
	Failed    int       `json:"failed"`
	// LeaseHeld is set when another replica owned this tick
	LeaseHeld bool `json:"lease_held"`
	// LeaseUnavailable is set when the lease store failed and the sweep ran without it
	LeaseUnavailable bool `json:"lease_unavailable,omitempty"`
}

// Reclaimer periodically deletes unpaid bookings past their expiry and returns
// their slots to the open pool.
type Reclaimer struct {
	store   repositories.Store
	lease   providers.LeaseProvider
	events  providers.EventBus
	metrics *observability.Metrics
	cfg     ReclaimerConfig
	now     func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewReclaimer creates a reclaimer. lease may be nil, in which case every tick sweeps.
func NewReclaimer(
	store repositories.Store,
	lease providers.LeaseProvider,
	events providers.EventBus,
	metrics *observability.Metrics,
	cfg ReclaimerConfig,
) *Reclaimer {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 1m"
	}
	if cfg.UnpaidExpiry <= 0 {
		cfg.UnpaidExpiry = 30 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 50 * time.Second
	}
	return &Reclaimer{
		store:   store,
		lease:   lease,
		events:  events,
		metrics: metrics,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Start schedules the sweep. Overlapping ticks are skipped while a sweep runs.
func (r *Reclaimer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron != nil {
		return fmt.Errorf("reclaimer already started")
	}

	logger := cronLogger{logger: log.With().Str("component", "reclaimer").Logger()}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(r.cfg.Schedule, r.tick); err != nil {
		return fmt.Errorf("invalid reclaim schedule %q: %w", r.cfg.Schedule, err)
	}
	c.Start()
	r.cron = c

	log.Info().
		Str("schedule", r.cfg.Schedule).
		Dur("unpaid_expiry", r.cfg.UnpaidExpiry).
		Msg("booking reclaimer started")
	return nil
}

// Stop halts scheduling and waits for a running sweep until ctx is done
func (r *Reclaimer) Stop(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		log.Info().Msg("booking reclaimer stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reclaimer) tick() {
	report, err := r.RunOnce(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("reclaim sweep failed")
		return
	}
	if report.Scanned > 0 {
		log.Info().
			Int("scanned", report.Scanned).
			Int("reclaimed", report.Reclaimed).
			Int("failed", report.Failed).
			Time("cutoff", report.Cutoff).
			Msg("reclaim sweep finished")
	}
}

// RunOnce performs a single sweep. A booking that fails to reclaim is logged and
// left for the next sweep.
func (r *Reclaimer) RunOnce(ctx context.Context) (*ReclaimReport, error) {
	started := r.now()
	report := &ReclaimReport{Cutoff: started.UTC().Add(-r.cfg.UnpaidExpiry)}

	if r.lease != nil {
		lease, ok, err := r.lease.TryAcquire(ctx, reclaimLeaseKey, r.cfg.LeaseTTL)
		switch {
		case err != nil:
			// Each booking is re-checked under its own lock, so sweeping
			// without the lease is safe.
			report.LeaseUnavailable = true
			log.Warn().Err(err).Msg("reclaimer lease unavailable, sweeping without it")
		case !ok:
			report.LeaseHeld = true
			return report, nil
		default:
			defer func() {
				if err := lease.Release(context.Background()); err != nil {
					log.Warn().Err(err).Msg("failed to release reclaimer lease")
				}
			}()
		}
	}

	stale, err := r.store.Bookings().ListStaleUnpaid(ctx, report.Cutoff, r.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	report.Scanned = len(stale)

	for _, candidate := range stale {
		if ctx.Err() != nil {
			break
		}
		booking, err := r.reclaim(ctx, candidate.ID, report.Cutoff)
		if err != nil {
			report.Failed++
			log.Error().
				Err(err).
				Str("booking_id", candidate.ID).
				Str("binding_id", candidate.BindingID).
				Msg("failed to reclaim booking")
			continue
		}
		if booking == nil {
			continue
		}
		report.Reclaimed++
		log.Info().
			Str("booking_id", booking.ID).
			Str("provider_id", booking.ProviderID).
			Str("slot_id", booking.SlotID).
			Time("created_at", booking.CreatedAt).
			Msg("stale unpaid booking reclaimed")
		publishEvent(ctx, r.events, entities.NewBookingEvent(entities.BookingEventReclaimed, booking, nil))
	}

	r.metrics.RecordReclaim(ctx, report.Reclaimed, report.Failed, r.now().Sub(started))
	return report, nil
}

// reclaim deletes one booking with its payment intent and frees its binding.
// It returns nil when the booking was paid or removed since it was selected.
func (r *Reclaimer) reclaim(ctx context.Context, bookingID string, cutoff time.Time) (*entities.Booking, error) {
	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback(tx)

	booking, err := tx.LockBooking(ctx, bookingID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	// Re-checked under the lock so a payment committed after selection wins.
	if !booking.IsStaleUnpaid(cutoff) {
		return nil, nil
	}

	if err := tx.DeletePaymentIntents(ctx, booking.ID); err != nil {
		return nil, err
	}
	if err := tx.ReleaseBinding(ctx, booking.BindingID, r.now().UTC()); err != nil {
		return nil, err
	}
	if err := tx.DeleteBooking(ctx, booking.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return booking, nil
}

// cronLogger routes cron's own logging through zerolog
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
