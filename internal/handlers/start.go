package handlers

import (
	"context"

	"github.com/sirupsen/logrus"
)

const startText = `💊 Welcome to MedTracker!

I keep track of whether you've taken your medications today, in your own timezone.

Start by telling me your timezone with /timezone <city>, then add a medication with /add <name>.
Use /help to see everything I can do.`

// StartHandler handles the /start command
type StartHandler struct {
	logger *logrus.Logger
}

// NewStartHandler creates a new start command handler
func NewStartHandler(logger *logrus.Logger) *StartHandler {
	return &StartHandler{
		logger: logger,
	}
}

// Handle processes the /start command
func (h *StartHandler) Handle(_ context.Context, accountID string, _ string) (string, error) {
	h.logger.WithField("account_id", accountID).Info("Sent start message")
	return startText, nil
}
