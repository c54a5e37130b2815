// Package bot wires the command engine to a chat transport and runs the
// periodic maintenance loops: the proposal expiry sweep and, when a
// snapshot store is configured, state backups.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"lunchbot/internal/state"
	"lunchbot/internal/storage"
)

// commandPrefix filters inbound chat lines before they reach the parser.
const commandPrefix = "lb "

var backupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "lunchbot_backups_total",
	Help: "Periodic state backups, by outcome.",
}, []string{"status"})

// Transport is the chat connection the bot talks through. internal/irc
// satisfies it; tests use fakes. ListMembers doubles as the engine's
// membership resolver and must never block indefinitely.
type Transport interface {
	Run(ctx context.Context, handler func(target, nick, line string)) error
	Privmsg(target, text string) error
	ListMembers(channel string) []string
}

// Bot owns the engine, the transport, and the maintenance schedule.
type Bot struct {
	Engine *state.Engine
	Conn   Transport
	Store  storage.Store // nil disables backups

	ExpiryInterval time.Duration
	BackupInterval time.Duration
}

// Run services inbound messages and the maintenance tickers until ctx ends
// or the transport fails.
func (b *Bot) Run(ctx context.Context) error {
	go b.expiryLoop(ctx)
	if b.Store != nil {
		go b.backupLoop(ctx)
	}
	return b.Conn.Run(ctx, b.handleLine)
}

// handleLine is invoked once per inbound chat line. Only lines with the
// command prefix reach the engine; everything else is channel chatter.
func (b *Bot) handleLine(target, nick, line string) {
	if !strings.HasPrefix(line, commandPrefix) {
		return
	}
	reply := b.Engine.Apply(line, b.Conn)
	// Replies can span lines (usage text); each goes out as its own
	// message.
	for _, part := range strings.Split(reply, "\n") {
		if err := b.Conn.Privmsg(target, part); err != nil {
			slog.Error("failed to send reply", "target", target, "nick", nick, "error", err)
			return
		}
	}
}

func (b *Bot) expiryLoop(ctx context.Context) {
	ticker := time.NewTicker(b.ExpiryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := b.Engine.ExpireProposals(); removed > 0 {
				slog.Info("removed old proposals", "count", removed)
			}
		}
	}
}

func (b *Bot) backupLoop(ctx context.Context) {
	ticker := time.NewTicker(b.BackupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.backup(ctx)
		}
	}
}

// backup serializes the state and hands it to the store. Failures are
// logged and skipped; the next cycle proceeds normally.
func (b *Bot) backup(ctx context.Context) {
	payload, err := b.Engine.Snapshot()
	if err != nil {
		backupsTotal.WithLabelValues("failure").Inc()
		slog.Error("failed to serialize state", "error", err)
		return
	}
	if err := b.Store.Save(ctx, payload); err != nil {
		backupsTotal.WithLabelValues("failure").Inc()
		slog.Error("failed to backup the state", "error", err)
		return
	}
	backupsTotal.WithLabelValues("success").Inc()
}

// Recover loads the newest snapshot into the engine. A missing snapshot is
// a fresh start, not an error.
func (b *Bot) Recover(ctx context.Context) error {
	if b.Store == nil {
		return nil
	}
	payload, err := b.Store.Load(ctx)
	if errors.Is(err, storage.ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if err := b.Engine.Restore(payload); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	slog.Info("state recovered from backup")
	return nil
}

// Shutdown takes one final backup so a clean stop never loses state.
func (b *Bot) Shutdown(ctx context.Context) {
	if b.Store == nil {
		return
	}
	b.backup(ctx)
}
