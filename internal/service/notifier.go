package service

import (
	"context"

	"github.com/lshigami/codescreen/internal/model"
	"github.com/rs/zerolog/log"
)

// InvitationNotifier tells a candidate about a new invitation.
type InvitationNotifier interface {
	NotifyInvitation(ctx context.Context, test *model.Test, candidate *model.Candidate) error
}

type logNotifier struct{}

// NewLogNotifier returns a notifier that only logs; outbound email is not wired.
func NewLogNotifier() InvitationNotifier {
	return logNotifier{}
}

func (logNotifier) NotifyInvitation(_ context.Context, test *model.Test, candidate *model.Candidate) error {
	log.Info().
		Uint("testID", test.ID).
		Str("testTitle", test.Title).
		Uint("candidateID", candidate.ID).
		Str("email", candidate.Email).
		Msg("NotifyInvitation: candidate invited")
	return nil
}
