package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/repositories"
	"github.com/zatekoja/slotbooking/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
)

// GenerateSlotsRequest describes a range of days and the daily window to cut into slots
type GenerateSlotsRequest struct {
	StartDate string `json:"start_date"` // 2006-01-02
	EndDate   string `json:"end_date"`   // 2006-01-02
	StartTime string `json:"start_time"` // 15:04
	EndTime   string `json:"end_time"`   // 15:04
	// Location is an IANA zone name; empty means the configured slot timezone
	Location string `json:"location,omitempty"`
}

// GenerateSlotsResult reports what a generation run did
type GenerateSlotsResult struct {
	Created []*entities.TimeSlot `json:"created"`
	Skipped int                  `json:"skipped"`
}

// SlotService generates and administers time slots
type SlotService struct {
	store       repositories.Store
	granularity time.Duration
	location    *time.Location
	metrics     *observability.Metrics
	now         func() time.Time
}

// NewSlotService creates a new slot service
func NewSlotService(store repositories.Store, granularity time.Duration, location *time.Location, metrics *observability.Metrics) *SlotService {
	if granularity <= 0 {
		granularity = entities.DefaultSlotGranularity
	}
	if location == nil {
		location = time.UTC
	}
	return &SlotService{
		store:       store,
		granularity: granularity,
		location:    location,
		metrics:     metrics,
		now:         time.Now,
	}
}

// GenerateSlots creates every slot of the requested range that does not exist yet.
// Re-running it over an overlapping range creates nothing twice.
func (s *SlotService) GenerateSlots(ctx context.Context, req GenerateSlotsRequest) (*GenerateSlotsResult, error) {
	ctx, span := observability.StartSpan(ctx, "SlotService.GenerateSlots",
		attribute.String("slot.start_date", req.StartDate),
		attribute.String("slot.end_date", req.EndDate),
	)
	defer span.End()

	intervals, err := s.plan(req)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	result := &GenerateSlotsResult{Created: []*entities.TimeSlot{}}
	now := s.now().UTC()
	for _, iv := range intervals {
		slot := &entities.TimeSlot{
			ID:        uuid.New().String(),
			StartTime: iv.Start,
			EndTime:   iv.End,
			CreatedAt: now,
		}
		created, err := s.store.Slots().CreateIfAbsent(ctx, slot)
		if err != nil {
			observability.RecordError(span, err)
			return nil, fmt.Errorf("failed to create slot %s: %w", iv.Start.Format(time.RFC3339), err)
		}
		if created {
			result.Created = append(result.Created, slot)
		} else {
			result.Skipped++
		}
	}

	s.metrics.Add(ctx, observability.SlotsGenerated, int64(len(result.Created)))
	observability.LoggerFromContext(ctx).Info().
		Int("created", len(result.Created)).
		Int("skipped", result.Skipped).
		Str("start_date", req.StartDate).
		Str("end_date", req.EndDate).
		Msg("slots generated")

	return result, nil
}

func (s *SlotService) plan(req GenerateSlotsRequest) ([]entities.Interval, error) {
	loc := s.location
	if req.Location != "" {
		l, err := time.LoadLocation(req.Location)
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("unknown location %q", req.Location))
		}
		loc = l
	}

	startDate, err := entities.ParseDate(req.StartDate, loc)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	endDate, err := entities.ParseDate(req.EndDate, loc)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	from, err := entities.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	to, err := entities.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	intervals, err := entities.PlanSlotIntervals(startDate, endDate, from, to, s.granularity, loc)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	return intervals, nil
}

// GetSlot retrieves a slot by ID
func (s *SlotService) GetSlot(ctx context.Context, id string) (*entities.TimeSlot, error) {
	if err := validateID("slot id", id); err != nil {
		return nil, err
	}
	return s.store.Slots().GetByID(ctx, id)
}

// DeleteSlot removes a slot no provider is bound to
func (s *SlotService) DeleteSlot(ctx context.Context, id string) error {
	if err := validateID("slot id", id); err != nil {
		return err
	}
	if _, err := s.store.Slots().GetByID(ctx, id); err != nil {
		return err
	}

	count, err := s.store.Bindings().CountBySlot(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.NewConflictError(fmt.Sprintf("slot %s is bound by %d provider(s)", id, count))
	}

	if err := s.store.Slots().Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("slot_id", id).Msg("slot deleted")
	return nil
}
