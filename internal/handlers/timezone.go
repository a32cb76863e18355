package handlers

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/MedTracker/internal/models"
	"github.com/Kerhoff/MedTracker/internal/service"
)

// TimezoneHandler handles the /timezone command.
type TimezoneHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewTimezoneHandler creates a new TimezoneHandler.
func NewTimezoneHandler(svc *service.Service, logger *logrus.Logger) *TimezoneHandler {
	return &TimezoneHandler{svc: svc, logger: logger}
}

// Handle processes the /timezone command.
func (h *TimezoneHandler) Handle(ctx context.Context, accountID, args string) (string, error) {
	if args == "" {
		return "❌ Please tell me your timezone.\nUsage: /timezone New York", nil
	}

	out, zone, err := h.svc.SetTimezone(ctx, accountID, args)
	if err != nil {
		return "", fmt.Errorf("set timezone: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"account_id": accountID,
		"timezone":   zone,
		"outcome":    out,
	}).Info("Timezone handled")

	if out == models.OutcomeInvalidZone {
		return fmt.Sprintf("%s is not a valid timezone name.", args), nil
	}
	return fmt.Sprintf("🌍 Your timezone has been set to %s.", zone), nil
}
