package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_Level(t *testing.T) {
	l := New("debug", "text")
	if l.GetLevel() != logrus.DebugLevel {
		t.Fatalf("want debug level, got %s", l.GetLevel())
	}

	l = New("nonsense", "text")
	if l.GetLevel() != logrus.InfoLevel {
		t.Fatalf("unknown level should fall back to info, got %s", l.GetLevel())
	}
}

func TestNew_Format(t *testing.T) {
	if _, ok := New("info", "json").Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatal("want JSON formatter")
	}
	if _, ok := New("info", "").Formatter.(*logrus.TextFormatter); !ok {
		t.Fatal("want text formatter by default")
	}
}

func TestWithAccount(t *testing.T) {
	e := WithAccount(New("info", "text"), "U1")
	if got := e.Data["account_id"]; got != "U1" {
		t.Fatalf("want account_id field U1, got %v", got)
	}
}
