package stopflow

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// PositionMode says where in the route a new stop goes.
type PositionMode string

const (
	PositionStart PositionMode = "start"
	PositionEnd   PositionMode = "end"
)

// Position is the requested placement. AfterIndex is carried for drafts that
// already contain it but no mode uses it yet.
type Position struct {
	Mode       PositionMode `json:"mode"`
	AfterIndex *int         `json:"after_index,omitempty"`
}

type ServiceWindow struct {
	PlannedServiceMinutes *int   `json:"planned_service_minutes,omitempty"`
	WindowStart           string `json:"window_start"`
	WindowEnd             string `json:"window_end"`
	HardWindow            bool   `json:"hard_window"`
}

// AccessDetails is the free text collected with the requirements.
type AccessDetails struct {
	AccessCode string `json:"access_code"`
	AccessInfo string `json:"access_info"`
	Notes      string `json:"notes"`
}

type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentCard  PaymentMethod = "card"
	PaymentCheck PaymentMethod = "check"
	PaymentZelle PaymentMethod = "zelle"
	PaymentOther PaymentMethod = "other"
)

// Payment is the expectation of collecting money at the stop.
// Amount is kept as entered and parsed on validation.
type Payment struct {
	Expected  bool          `json:"expected"`
	Amount    string        `json:"amount"`
	Method    PaymentMethod `json:"method"`
	Reference string        `json:"reference"`
	Notes     string        `json:"notes"`
}

// AmountValue parses Amount; ok is false when it is empty, not a finite
// number, or negative.
func (p Payment) AmountValue() (float64, bool) {
	s := strings.TrimSpace(p.Amount)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// Schedule is draft stage 2.
type Schedule struct {
	Position     Position      `json:"position"`
	Sequence     int           `json:"sequence"`
	Window       ServiceWindow `json:"window"`
	Requirements Requirements  `json:"requirements"`
	Access       AccessDetails `json:"access"`
	Payment      Payment       `json:"payment"`
}

const clockLayout = "15:04"

// ValidClock reports whether s is a 24h HH:mm time.
func ValidClock(s string) bool {
	if len(s) != len(clockLayout) {
		return false
	}
	_, err := time.Parse(clockLayout, s)
	return err == nil
}

// Validate returns the first problem with the schedule, wrapped in
// ErrInvalidSchedule, or nil.
func (s Schedule) Validate() error {
	if s.Window.HardWindow {
		if strings.TrimSpace(s.Window.WindowStart) == "" || strings.TrimSpace(s.Window.WindowEnd) == "" {
			return fmt.Errorf("%w: hard window needs both start and end", ErrInvalidSchedule)
		}
	}
	for _, t := range []string{s.Window.WindowStart, s.Window.WindowEnd} {
		if t != "" && !ValidClock(t) {
			return fmt.Errorf("%w: window time %q is not HH:mm", ErrInvalidSchedule, t)
		}
	}
	if m := s.Window.PlannedServiceMinutes; m != nil && *m < 0 {
		return fmt.Errorf("%w: planned service minutes must not be negative", ErrInvalidSchedule)
	}
	if s.Payment.Expected {
		if _, ok := s.Payment.AmountValue(); !ok {
			return fmt.Errorf("%w: expected payment needs a non-negative numeric amount", ErrInvalidSchedule)
		}
	}
	return nil
}

// IsValid is Validate as a bool.
func (s Schedule) IsValid() bool {
	return s.Validate() == nil
}

// ComputeSequence maps a position to a 1-based sequence. Shifting the stops
// already on the route is left to the stop service.
func ComputeSequence(mode PositionMode, currentStopCount int) (int, error) {
	switch mode {
	case PositionStart:
		return 1, nil
	case PositionEnd:
		return currentStopCount + 1, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedPosition, mode)
}

// ScheduleStep captures when the stop happens and what it needs.
type ScheduleStep struct {
	Drafts DraftStore
	Routes RouteReader
}

// Save validates s, computes its sequence from the live stop count and
// writes stage 2. Stage 1 must already exist and is left untouched.
func (st *ScheduleStep) Save(ctx context.Context, key DraftKey, s Schedule) (Schedule, error) {
	var id Identity
	ok, err := st.Drafts.Get(ctx, key.stage(stageIdentity), &id)
	if err != nil {
		return Schedule{}, fmt.Errorf("load identity draft: %w", err)
	}
	if !ok {
		return Schedule{}, ErrIdentityMissing
	}
	if err := pendingSubmission(ctx, st.Drafts, key); err != nil {
		return Schedule{}, err
	}
	if s.Position.Mode == "" {
		s.Position.Mode = PositionEnd
	}
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}

	count, err := st.Routes.CountStops(ctx, key.RouteID)
	if err != nil {
		return Schedule{}, fmt.Errorf("count stops: %w", err)
	}
	seq, err := ComputeSequence(s.Position.Mode, count)
	if err != nil {
		return Schedule{}, err
	}
	s.Sequence = seq

	if err := st.Drafts.Set(ctx, key.stage(stageSchedule), s); err != nil {
		return Schedule{}, fmt.Errorf("save schedule draft: %w", err)
	}
	return s, nil
}

// Load rehydrates stage 2, accepting legacy requirement flag names.
func (st *ScheduleStep) Load(ctx context.Context, key DraftKey) (Schedule, bool, error) {
	var s Schedule
	ok, err := st.Drafts.Get(ctx, key.stage(stageSchedule), &s)
	if err != nil {
		return Schedule{}, false, fmt.Errorf("load schedule draft: %w", err)
	}
	return s, ok, nil
}
