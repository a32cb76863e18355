package handlers

import "context"

const helpText = `📚 MedTracker Help

Medications:
• /add <name> - Start tracking a medication
• /remove <name> - Stop tracking a medication
• /meds - Show tracked medications

Today:
• /take <name>[, <name>[, <name>]] - Record taking up to three medications
• /cancel <name> - You didn't take it after all
• /check <name> - Did I take it today?
• /taken - What have I taken today?

Settings:
• /timezone <zone> - Set your timezone, e.g. New York or Europe/Paris`

// HelpHandler handles the /help command
type HelpHandler struct{}

func NewHelpHandler() *HelpHandler {
	return &HelpHandler{}
}

func (h *HelpHandler) Handle(context.Context, string, string) (string, error) {
	return helpText, nil
}
