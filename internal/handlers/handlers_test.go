package handlers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/Kerhoff/MedTracker/internal/models"
	"github.com/Kerhoff/MedTracker/internal/repository/sqlrepo"
	"github.com/Kerhoff/MedTracker/internal/service"
	"github.com/Kerhoff/MedTracker/internal/testdb"
)

type command interface {
	Handle(ctx context.Context, accountID, args string) (string, error)
}

func newService(t *testing.T) *service.Service {
	t.Helper()
	db := testdb.Open(t)
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	return service.New(sqlrepo.NewStore(db.DB, testdb.Logger()), testdb.Logger(),
		service.WithClock(func() time.Time { return now }))
}

func run(t *testing.T, h command, args string) string {
	t.Helper()
	text, err := h.Handle(context.Background(), "U1", args)
	if err != nil {
		t.Fatalf("handle %q: %v", args, err)
	}
	return text
}

func expectReply(t *testing.T, h command, args, want string) {
	t.Helper()
	if got := run(t, h, args); !strings.Contains(got, want) {
		t.Fatalf("%q: want reply containing %q, got %q", args, want, got)
	}
}

func TestJoinNames(t *testing.T) {
	cases := []struct {
		names []string
		want  string
	}{
		{nil, ""},
		{[]string{"a"}, "a"},
		{[]string{"a", "b"}, "a and b"},
		{[]string{"a", "b", "c"}, "a, b, and c"},
		{[]string{"a", "b", "c", "d"}, "a, b, c, and d"},
	}
	for _, tc := range cases {
		if got := JoinNames(tc.names); got != tc.want {
			t.Errorf("%v: want %q, got %q", tc.names, tc.want, got)
		}
	}
}

func TestSplitNames(t *testing.T) {
	got := splitNames(" vitamin d, , iron ,zinc")
	if strings.Join(got, "|") != "vitamin d|iron|zinc" {
		t.Fatalf("unexpected split %q", got)
	}
	if len(splitNames("")) != 0 {
		t.Fatal("want no names")
	}
}

func TestMedicationCommands(t *testing.T) {
	svc := newService(t)
	logger := testdb.Logger()

	add := NewAddHandler(svc, logger)
	remove := NewRemoveHandler(svc, logger)
	take := NewTakeHandler(svc, logger)
	cancel := NewCancelHandler(svc, logger)
	check := NewCheckHandler(svc, logger)
	taken := NewTakenHandler(svc, logger)
	list := NewListHandler(svc, logger)

	expectReply(t, list, "", "not tracking any medications")
	expectReply(t, taken, "", "not tracking any medications")

	expectReply(t, add, "", "Usage")
	expectReply(t, add, "vitamin d", "now tracking vitamin d")
	expectReply(t, add, "vitamin d", "already tracking vitamin d")
	expectReply(t, add, "iron", "now tracking iron")
	expectReply(t, add, "zinc", "now tracking zinc")

	expectReply(t, list, "", "iron, vitamin d, and zinc")

	expectReply(t, check, "vitamin d", "haven't taken vitamin d")
	expectReply(t, taken, "", "haven't told me")

	expectReply(t, take, "ghost", "not tracking ghost")
	expectReply(t, take, "iron, ghost", "didn't recognize ghost, so I didn't record anything")
	expectReply(t, check, "iron", "haven't taken iron")
	expectReply(t, take, "", "one to three")
	expectReply(t, take, "a, b, c, d", "one to three")

	expectReply(t, take, "vitamin d, iron", "you've taken vitamin d and iron")
	expectReply(t, check, "vitamin d", "did take vitamin d")
	expectReply(t, taken, "", "taken iron and vitamin d")

	expectReply(t, cancel, "iron", "you didn't take iron")
	expectReply(t, cancel, "iron", "didn't take iron anyway")
	expectReply(t, cancel, "ghost", "wasn't tracking ghost")

	expectReply(t, remove, "zinc", "no longer keeping track of zinc")
	expectReply(t, remove, "zinc", "wasn't tracking zinc")
	expectReply(t, check, "zinc", "not tracking zinc")
}

func TestTakeCommand_RepliesWithRecordedNames(t *testing.T) {
	svc := newService(t)
	logger, hook := test.NewNullLogger()

	expectReply(t, NewAddHandler(svc, logger), "iron", "now tracking iron")

	got := run(t, NewTakeHandler(svc, logger), "iron, iron ,iron")
	if got != "👍 Okay, you've taken iron." {
		t.Fatalf("want a single iron in the reply, got %q", got)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.InfoLevel {
		t.Fatalf("want an info entry for the take, got %+v", entry)
	}
	if entry.Data["account_id"] != "U1" || entry.Data["outcome"] != models.OutcomeTaken {
		t.Fatalf("unexpected log fields %v", entry.Data)
	}
	if names, _ := entry.Data["medications"].([]string); strings.Join(names, ",") != "iron" {
		t.Fatalf("want logged medications [iron], got %v", entry.Data["medications"])
	}
}

func TestTimezoneCommand(t *testing.T) {
	h := NewTimezoneHandler(newService(t), testdb.Logger())

	expectReply(t, h, "", "Usage")
	expectReply(t, h, "new york", "set to America/New_York")
	expectReply(t, h, "Mordor", "Mordor is not a valid timezone name")
}

func TestStartAndHelp(t *testing.T) {
	expectReply(t, NewStartHandler(testdb.Logger()), "", "/timezone")
	expectReply(t, NewHelpHandler(), "", "/take")
}
