package service

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"piggybank/internal/events"
	"piggybank/internal/log"
	"piggybank/internal/models"
)

// Clock supplies the current time. Services store UTC timestamps only.
type Clock func() time.Time

// SystemClock returns the wall clock in UTC
func SystemClock() time.Time {
	return time.Now().UTC()
}

func requireParent(p models.Principal) error {
	if !p.IsParent() {
		return ErrForbidden
	}
	return nil
}

func requireChild(p models.Principal) error {
	if !p.IsChild() {
		return ErrForbidden
	}
	return nil
}

// backoff sleeps a jittered, growing delay before retry attempt n, or
// returns early with ctx's error.
func backoff(ctx context.Context, attempt int) error {
	base := time.Duration(attempt+1) * 5 * time.Millisecond
	delay := base + time.Duration(rand.Int64N(int64(base)))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// publish emits a domain event after its transaction committed. Delivery
// failures are logged only; the committed change stands.
func publish(ctx context.Context, publisher events.Publisher, logger *log.Logger, eventType string, familyID int64, at time.Time, payload any) {
	event, err := events.New(eventType, familyID, at, payload)
	if err == nil {
		err = publisher.Publish(ctx, event)
	}
	if err != nil {
		logger.ErrorContext(ctx, "failed to publish event",
			log.FieldOperation, eventType,
			log.FieldError, err,
		)
	}
}
