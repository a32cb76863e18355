package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/MedTracker/internal/models"
	"github.com/Kerhoff/MedTracker/internal/service"
)

// ---------------------------------------------------------------------------
// AddHandler – /add <name>
// ---------------------------------------------------------------------------

// AddHandler handles the /add command to start tracking a medication.
type AddHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewAddHandler creates a new AddHandler.
func NewAddHandler(svc *service.Service, logger *logrus.Logger) *AddHandler {
	return &AddHandler{svc: svc, logger: logger}
}

// Handle processes the /add command.
func (h *AddHandler) Handle(ctx context.Context, accountID, args string) (string, error) {
	if args == "" {
		return "❌ Please name the medication.\nUsage: /add vitamin d", nil
	}

	out, err := h.svc.AddMedication(ctx, accountID, args)
	if errors.Is(err, service.ErrInvalidName) {
		return "❌ Please name the medication.\nUsage: /add vitamin d", nil
	}
	if err != nil {
		return "", fmt.Errorf("add medication: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"account_id": accountID,
		"medication": args,
		"outcome":    out,
	}).Info("Medication add handled")

	if out == models.OutcomeAlreadyTracked {
		return fmt.Sprintf("I'm already tracking %s for you.", args), nil
	}
	return fmt.Sprintf("✅ I'm now tracking %s for you.", args), nil
}

// ---------------------------------------------------------------------------
// RemoveHandler – /remove <name>
// ---------------------------------------------------------------------------

// RemoveHandler handles the /remove command.
type RemoveHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewRemoveHandler creates a new RemoveHandler.
func NewRemoveHandler(svc *service.Service, logger *logrus.Logger) *RemoveHandler {
	return &RemoveHandler{svc: svc, logger: logger}
}

// Handle processes the /remove command.
func (h *RemoveHandler) Handle(ctx context.Context, accountID, args string) (string, error) {
	if args == "" {
		return "❌ Please name the medication.\nUsage: /remove vitamin d", nil
	}

	out, err := h.svc.RemoveMedication(ctx, accountID, args)
	if err != nil {
		return "", fmt.Errorf("remove medication: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"account_id": accountID,
		"medication": args,
		"outcome":    out,
	}).Info("Medication remove handled")

	if out == models.OutcomeNotTracked {
		return fmt.Sprintf("I wasn't tracking %s.", args), nil
	}
	return fmt.Sprintf("🗑 I'm no longer keeping track of %s.", args), nil
}

// ---------------------------------------------------------------------------
// TakeHandler – /take <name>[, <name>[, <name>]]
// ---------------------------------------------------------------------------

// TakeHandler handles the /take command. Up to three comma separated
// medications are recorded together or not at all.
type TakeHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewTakeHandler creates a new TakeHandler.
func NewTakeHandler(svc *service.Service, logger *logrus.Logger) *TakeHandler {
	return &TakeHandler{svc: svc, logger: logger}
}

// Handle processes the /take command.
func (h *TakeHandler) Handle(ctx context.Context, accountID, args string) (string, error) {
	names := splitNames(args)

	res, err := h.svc.Take(ctx, accountID, names...)
	if errors.Is(err, service.ErrInvalidBatch) {
		return "❌ Tell me one to three medications, separated by commas.\nUsage: /take aspirin, vitamin d", nil
	}
	if err != nil {
		return "", fmt.Errorf("take medication: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"account_id":  accountID,
		"medications": res.Medications,
		"outcome":     res.Outcome,
	}).Info("Take handled")

	if !res.IsTaken() {
		if len(res.Medications) == 1 {
			return fmt.Sprintf("I'm not tracking %s. Let me know with /add if you want to start tracking it.", res.Missing[0]), nil
		}
		return fmt.Sprintf("I didn't recognize %s, so I didn't record anything.", JoinNames(res.Missing)), nil
	}
	return fmt.Sprintf("👍 Okay, you've taken %s.", JoinNames(res.Medications)), nil
}

// ---------------------------------------------------------------------------
// CancelHandler – /cancel <name>
// ---------------------------------------------------------------------------

// CancelHandler handles the /cancel command.
type CancelHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewCancelHandler creates a new CancelHandler.
func NewCancelHandler(svc *service.Service, logger *logrus.Logger) *CancelHandler {
	return &CancelHandler{svc: svc, logger: logger}
}

// Handle processes the /cancel command.
func (h *CancelHandler) Handle(ctx context.Context, accountID, args string) (string, error) {
	if args == "" {
		return "❌ Please name the medication.\nUsage: /cancel aspirin", nil
	}

	out, err := h.svc.Cancel(ctx, accountID, args)
	if err != nil {
		return "", fmt.Errorf("cancel medication: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"account_id": accountID,
		"medication": args,
		"outcome":    out,
	}).Info("Cancel handled")

	switch out {
	case models.OutcomeNotTracked:
		return fmt.Sprintf("I wasn't tracking %s.", args), nil
	case models.OutcomeNotTakenAnyway:
		return fmt.Sprintf("It seems you didn't take %s anyway.", args), nil
	default:
		return fmt.Sprintf("Okay, you didn't take %s.", args), nil
	}
}

// ---------------------------------------------------------------------------
// CheckHandler – /check <name>
// ---------------------------------------------------------------------------

// CheckHandler handles the /check command.
type CheckHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewCheckHandler creates a new CheckHandler.
func NewCheckHandler(svc *service.Service, logger *logrus.Logger) *CheckHandler {
	return &CheckHandler{svc: svc, logger: logger}
}

// Handle processes the /check command.
func (h *CheckHandler) Handle(ctx context.Context, accountID, args string) (string, error) {
	if args == "" {
		return "❌ Please name the medication.\nUsage: /check aspirin", nil
	}

	out, err := h.svc.IsTakenToday(ctx, accountID, args)
	if err != nil {
		return "", fmt.Errorf("check medication: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"account_id": accountID,
		"medication": args,
		"outcome":    out,
	}).Debug("Check handled")

	switch out {
	case models.OutcomeNotTracked:
		return fmt.Sprintf("I'm not tracking %s.", args), nil
	case models.OutcomeTaken:
		return fmt.Sprintf("✅ You did take %s today.", args), nil
	default:
		return fmt.Sprintf("⏳ You haven't taken %s today.", args), nil
	}
}

// ---------------------------------------------------------------------------
// TakenHandler – /taken
// ---------------------------------------------------------------------------

// TakenHandler handles the /taken command.
type TakenHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewTakenHandler creates a new TakenHandler.
func NewTakenHandler(svc *service.Service, logger *logrus.Logger) *TakenHandler {
	return &TakenHandler{svc: svc, logger: logger}
}

// Handle processes the /taken command.
func (h *TakenHandler) Handle(ctx context.Context, accountID, _ string) (string, error) {
	all, err := h.svc.ListMedications(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("list medications: %w", err)
	}
	if len(all) == 0 {
		return "I'm not tracking any medications for you.", nil
	}

	taken, err := h.svc.ListTakenToday(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("list taken medications: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"account_id": accountID,
		"tracked":    len(all),
		"taken":      len(taken),
	}).Debug("Taken summary handled")
	if len(taken) == 0 {
		return "You haven't told me that you've taken any medications today.", nil
	}
	return fmt.Sprintf("You've told me that you've taken %s.", JoinNames(taken)), nil
}

// ---------------------------------------------------------------------------
// ListHandler – /meds
// ---------------------------------------------------------------------------

// ListHandler handles the /meds command.
type ListHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewListHandler creates a new ListHandler.
func NewListHandler(svc *service.Service, logger *logrus.Logger) *ListHandler {
	return &ListHandler{svc: svc, logger: logger}
}

// Handle processes the /meds command.
func (h *ListHandler) Handle(ctx context.Context, accountID, _ string) (string, error) {
	names, err := h.svc.ListMedications(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("list medications: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"account_id": accountID,
		"tracked":    len(names),
	}).Debug("Medication list handled")

	if len(names) == 0 {
		return "I'm not tracking any medications for you. Add one with /add <name>.", nil
	}
	return fmt.Sprintf("💊 I'm tracking %s.", JoinNames(names)), nil
}
