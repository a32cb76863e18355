package telegram

import (
	"context"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const (
	commandTimeout = 15 * time.Second

	welcomeText = "👋 This appears to be your first time using MedTracker. I have created an account for you."
	errorText   = "❌ An error occurred while processing your command. Please try again."
	unknownText = "❓ Unknown command. Use /help to see available commands."
)

// CommandHandler handles one bot command. args is the raw text after the
// command; the returned text is sent back to the chat.
type CommandHandler interface {
	Handle(ctx context.Context, accountID string, args string) (string, error)
}

// AccountRecorder records that an account talked to the bot.
type AccountRecorder interface {
	FirstContact(ctx context.Context, accountID string) (bool, error)
}

// Sender sends messages to Telegram. *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Router handles message routing and command parsing
type Router struct {
	logger   *logrus.Logger
	accounts AccountRecorder
	handlers map[string]CommandHandler
}

// NewRouter creates a new message router
func NewRouter(accounts AccountRecorder, logger *logrus.Logger) *Router {
	return &Router{
		logger:   logger,
		accounts: accounts,
		handlers: make(map[string]CommandHandler),
	}
}

// RegisterCommand registers a command handler
func (r *Router) RegisterCommand(command string, handler CommandHandler) {
	r.handlers[command] = handler
	r.logger.Debugf("Registered command: %s", command)
}

// AccountID is the account identifier for a Telegram user.
func AccountID(user *tgbotapi.User) string {
	return strconv.FormatInt(user.ID, 10)
}

// HandleMessage records the contact, runs the command and replies.
func (r *Router) HandleMessage(ctx context.Context, bot Sender, message *tgbotapi.Message) {
	// Only process commands from users
	if message.From == nil || message.Text == "" || !message.IsCommand() {
		return
	}

	accountID := AccountID(message.From)
	command := message.Command()
	log := r.logger.WithFields(logrus.Fields{
		"chat_id":    message.Chat.ID,
		"account_id": accountID,
		"command":    command,
		"message_id": message.MessageID,
	})
	log.Info("Received command")

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	isNew, err := r.accounts.FirstContact(ctx, accountID)
	if err != nil {
		log.WithError(err).Error("First contact failed")
		r.reply(bot, message.Chat.ID, errorText)
		return
	}

	handler, exists := r.handlers[command]
	if !exists {
		log.Warn("Unknown command")
		r.reply(bot, message.Chat.ID, prefix(isNew, unknownText))
		return
	}

	text, err := handler.Handle(ctx, accountID, strings.TrimSpace(message.CommandArguments()))
	if err != nil {
		log.WithError(err).Error("Command handler failed")
		text = errorText
	}

	r.reply(bot, message.Chat.ID, prefix(isNew, text))
}

func (r *Router) reply(bot Sender, chatID int64, text string) {
	if _, err := bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send message")
	}
}

func prefix(isNew bool, text string) string {
	if isNew {
		return welcomeText + "\n\n" + text
	}
	return text
}
