package bot

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lunchbot/internal/state"
	filestore "lunchbot/internal/storage/file"
)

type sentMsg struct {
	target string
	text   string
}

// fakeTransport records outbound messages and serves a fixed member list.
type fakeTransport struct {
	members []string
	sent    []sentMsg
}

func (f *fakeTransport) Run(ctx context.Context, handler func(target, nick, line string)) error {
	<-ctx.Done()
	return nil
}

func (f *fakeTransport) Privmsg(target, text string) error {
	f.sent = append(f.sent, sentMsg{target: target, text: text})
	return nil
}

func (f *fakeTransport) ListMembers(channel string) []string {
	return f.members
}

func newTestBot() (*Bot, *fakeTransport) {
	conn := &fakeTransport{}
	b := &Bot{
		Engine:         state.NewEngine("#lunch"),
		Conn:           conn,
		ExpiryInterval: time.Minute,
		BackupInterval: 5 * time.Minute,
	}
	return b, conn
}

func TestHandleLineIgnoresChatter(t *testing.T) {
	b, conn := newTestBot()

	b.handleLine("#lunch", "honza", "what do you think about lunch?")
	b.handleLine("#lunch", "honza", "lbadd 5")

	if len(conn.sent) != 0 {
		t.Errorf("sent %d messages for non-command chatter, want 0", len(conn.sent))
	}
}

func TestHandleLineRepliesToTarget(t *testing.T) {
	b, conn := newTestBot()

	b.handleLine("#lunch", "honza", "lb add 5")

	if len(conn.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(conn.sent))
	}
	if conn.sent[0].target != "#lunch" {
		t.Errorf("reply target = %q, want %q", conn.sent[0].target, "#lunch")
	}
	if conn.sent[0].text != "Store: 5" {
		t.Errorf("reply text = %q, want %q", conn.sent[0].text, "Store: 5")
	}
}

func TestHandleLineUsesMembershipResolver(t *testing.T) {
	b, conn := newTestBot()
	conn.members = []string{"alice|lunch", "bob|work", "carol"}

	b.handleLine("#lunch", "alice", "lb group add team alice,bob")
	b.handleLine("#lunch", "alice", "lb propose cafe 12:00 to team")

	last := conn.sent[len(conn.sent)-1]
	if want := "alice|lunch,bob|work go to cafe at 12:00"; last.text != want {
		t.Errorf("reply = %q, want %q", last.text, want)
	}
}

// Multi-line replies (the usage text) are sent as one message per line;
// raw newlines are not valid inside a chat message.
func TestHandleLineSplitsMultilineReplies(t *testing.T) {
	b, conn := newTestBot()

	b.handleLine("#lunch", "honza", "lb halp")

	wantLines := strings.Split(state.Usage, "\n")
	if len(conn.sent) != len(wantLines) {
		t.Fatalf("sent %d messages, want %d", len(conn.sent), len(wantLines))
	}
	for i, msg := range conn.sent {
		if msg.text != wantLines[i] {
			t.Errorf("line %d = %q, want %q", i, msg.text, wantLines[i])
		}
		if strings.Contains(msg.text, "\n") {
			t.Errorf("line %d contains a raw newline", i)
		}
	}
}

func TestBackupAndRecover(t *testing.T) {
	store, err := filestore.New(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	b, _ := newTestBot()
	b.Store = store
	b.handleLine("#lunch", "honza", "lb group add team alice,bob")
	b.handleLine("#lunch", "honza", "lb add 9")

	ctx := context.Background()
	b.backup(ctx)

	// A fresh bot over the same store picks the state back up.
	restored, conn := newTestBot()
	restored.Store = store
	if err := restored.Recover(ctx); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	restored.handleLine("#lunch", "honza", "lb add 0")
	last := conn.sent[len(conn.sent)-1]
	if want := "Store: 9"; last.text != want {
		t.Errorf("counter after recover = %q, want %q", last.text, want)
	}
	restored.handleLine("#lunch", "honza", "lb list groups")
	last = conn.sent[len(conn.sent)-1]
	if want := "Groups: team"; last.text != want {
		t.Errorf("groups after recover = %q, want %q", last.text, want)
	}
}

func TestRecoverWithoutSnapshotIsFreshStart(t *testing.T) {
	store, err := filestore.New(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	b, _ := newTestBot()
	b.Store = store
	if err := b.Recover(context.Background()); err != nil {
		t.Errorf("Recover with no snapshot = %v, want nil", err)
	}
}

func TestRecoverWithoutStoreIsNoop(t *testing.T) {
	b, _ := newTestBot()
	if err := b.Recover(context.Background()); err != nil {
		t.Errorf("Recover without store = %v, want nil", err)
	}
}
