package service

import (
	"context"
	"errors"
	"time"

	"piggybank/internal/log"
)

// Sweeper periodically removes expired sessions and retires expired invitations
type Sweeper struct {
	auth        *AuthService
	invitations *InvitationService
	interval    time.Duration
	logger      *log.Logger
}

// SweepResult counts what one pass cleaned up
type SweepResult struct {
	Sessions    int64
	Invitations int64
}

// NewSweeper creates a sweeper that runs every interval
func NewSweeper(auth *AuthService, invitations *InvitationService, interval time.Duration, logger *log.Logger) *Sweeper {
	return &Sweeper{
		auth:        auth,
		invitations: invitations,
		interval:    interval,
		logger:      logger.WithComponent(log.ComponentSweeper),
	}
}

// RunOnce performs a single cleanup pass. Both steps run even if one fails.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	sessions, sessionErr := s.auth.CleanupExpiredSessions(ctx)
	result.Sessions = sessions

	invitations, invitationErr := s.invitations.ExpireStale(ctx)
	result.Invitations = invitations

	return result, errors.Join(sessionErr, invitationErr)
}

// Run sweeps until ctx is cancelled
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		result, err := s.RunOnce(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "sweep failed", log.FieldError, err)
		} else if result.Sessions > 0 || result.Invitations > 0 {
			s.logger.InfoContext(ctx, "sweep completed",
				"sessions", result.Sessions,
				"invitations", result.Invitations,
			)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
