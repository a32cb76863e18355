package telegram

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	sent []sentMessage
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	s.sent = append(s.sent, sentMessage{chatID: msg.ChatID, text: msg.Text})
	return tgbotapi.Message{}, nil
}

type fakeAccounts struct {
	seen map[string]bool
	err  error
}

func (a *fakeAccounts) FirstContact(_ context.Context, accountID string) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	if a.seen[accountID] {
		return false, nil
	}
	a.seen[accountID] = true
	return true, nil
}

type echoHandler struct {
	gotAccount, gotArgs string
	err                 error
}

func (h *echoHandler) Handle(_ context.Context, accountID, args string) (string, error) {
	h.gotAccount, h.gotArgs = accountID, args
	return "echo: " + args, h.err
}

func command(userID int64, text string) *tgbotapi.Message {
	cmd := strings.SplitN(text, " ", 2)[0]
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: 100 + userID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}
}

func newTestRouter() (*Router, *fakeAccounts, *echoHandler) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	accounts := &fakeAccounts{seen: map[string]bool{}}
	h := &echoHandler{}
	r := NewRouter(accounts, logger)
	r.RegisterCommand("take", h)
	return r, accounts, h
}

func TestRouter_FirstContactWelcome(t *testing.T) {
	r, _, h := newTestRouter()
	bot := &fakeSender{}

	r.HandleMessage(context.Background(), bot, command(42, "/take vitamin d, iron"))
	r.HandleMessage(context.Background(), bot, command(42, "/take zinc"))

	if h.gotAccount != "42" {
		t.Fatalf("want account 42, got %s", h.gotAccount)
	}
	if len(bot.sent) != 2 {
		t.Fatalf("want 2 replies, got %d", len(bot.sent))
	}
	if bot.sent[0].chatID != 142 {
		t.Fatalf("want reply to chat 142, got %d", bot.sent[0].chatID)
	}
	if !strings.HasPrefix(bot.sent[0].text, welcomeText) || !strings.HasSuffix(bot.sent[0].text, "echo: vitamin d, iron") {
		t.Fatalf("first reply must welcome and still run the command, got %q", bot.sent[0].text)
	}
	if bot.sent[1].text != "echo: zinc" {
		t.Fatalf("second reply must not welcome again, got %q", bot.sent[1].text)
	}
}

func TestRouter_UnknownCommand(t *testing.T) {
	r, accounts, _ := newTestRouter()
	accounts.seen["7"] = true
	bot := &fakeSender{}

	r.HandleMessage(context.Background(), bot, command(7, "/dance"))

	if len(bot.sent) != 1 || bot.sent[0].text != unknownText {
		t.Fatalf("want unknown command reply, got %+v", bot.sent)
	}
}

func TestRouter_Errors(t *testing.T) {
	r, accounts, h := newTestRouter()
	accounts.seen["7"] = true
	h.err = errors.New("storage down")
	bot := &fakeSender{}

	r.HandleMessage(context.Background(), bot, command(7, "/take aspirin"))
	if len(bot.sent) != 1 || bot.sent[0].text != errorText {
		t.Fatalf("want generic error reply, got %+v", bot.sent)
	}

	accounts.err = errors.New("storage down")
	h.gotArgs = ""
	r.HandleMessage(context.Background(), bot, command(7, "/take iron"))
	if h.gotArgs != "" {
		t.Fatal("command must not run when first contact fails")
	}
	if len(bot.sent) != 2 || bot.sent[1].text != errorText {
		t.Fatalf("want generic error reply, got %+v", bot.sent)
	}
}

func TestRouter_IgnoresNonCommands(t *testing.T) {
	r, _, _ := newTestRouter()
	bot := &fakeSender{}

	r.HandleMessage(context.Background(), bot, &tgbotapi.Message{From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: 1}, Text: "hello"})
	r.HandleMessage(context.Background(), bot, &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}, Text: "/take x"})

	if len(bot.sent) != 0 {
		t.Fatalf("want no replies, got %+v", bot.sent)
	}
}
