// Package state owns the lunchbot aggregate: groups, open proposals, the
// shared counter, and the bot's home channel. The aggregate lives behind a
// single mutex in an Engine; every operation takes the lock for its whole
// duration and returns its reply, so no network write ever happens inside
// the critical section.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"lunchbot/internal/syntax"
)

// proposalTTL is how long a proposal stays listed before the expiry sweep
// removes it.
const proposalTTL = 2 * time.Hour

// Usage is the reply for lines that match no command.
const Usage = `lunchbot commands:
lb add <n> -- add <n> to the shared counter
lb add <user> to <group> -- add a user to an existing group
lb group add <name> <user1,user2,...> -- create a group
lb group remove <name> -- remove a group
lb propose <place> [at|@] <time> [to <group>] [meet <place> <time>] -- propose a lunch
lb list [groups|proposals] -- list groups or open proposals
lb dumpstate -- dump the serialized bot state
lb restore <state> -- restore a previously dumped state`

// User is a chat nickname.
type User = string

// Group is a named, ordered member list. Order is display order and
// duplicates are allowed; nothing in the bot ever deduplicates members or
// group names.
type Group struct {
	Name  string `json:"name"`
	Users []User `json:"users"`
}

// String renders the member list the way replies embed it.
func (g Group) String() string {
	return strings.Join(g.Users, ",")
}

// displayRoster maps each stored base name to the first live nickname that
// has it as a prefix. IRC users decorate their nicks with suffixes like
// |lunch or |mtg, so "alice" should surface as "alice|lunch". Members with
// no live match are dropped.
func (g Group) displayRoster(live []User) []User {
	var roster []User
	for _, base := range g.Users {
		for _, current := range live {
			if strings.HasPrefix(current, base) {
				roster = append(roster, current)
				break
			}
		}
	}
	return roster
}

// Timestamp is an absolute instant stored as whole seconds and nanoseconds
// since the Unix epoch. The split representation round-trips exactly
// through JSON and matches the field layout of backups taken before this
// rewrite.
type Timestamp struct {
	Secs  int64 `json:"secs_since_epoch"`
	Nanos int64 `json:"nanos_since_epoch"`
}

func now() Timestamp {
	t := time.Now()
	return Timestamp{Secs: t.Unix(), Nanos: int64(t.Nanosecond())}
}

// Time converts the timestamp back to a time.Time.
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Secs, ts.Nanos)
}

// MeetingPoint is an optional rendezvous attached to a proposal.
type MeetingPoint struct {
	Place string `json:"place"`
	Time  string `json:"time"`
}

// Proposal is one lunch suggestion. Group holds the group name as typed at
// creation time, not a live link; resolution is a fresh lookup whenever it
// is needed, so a proposal survives its group being removed. Created is set
// once at construction and never mutated.
type Proposal struct {
	Place   string        `json:"place"`
	Time    string        `json:"time"`
	Group   *string       `json:"group"`
	Meet    *MeetingPoint `json:"meeting_point,omitempty"`
	Created Timestamp     `json:"created"`
}

// String renders the proposal the way "lb list" shows it.
func (p Proposal) String() string {
	return fmt.Sprintf("%s at %s", p.Place, p.Time)
}

// BotState is the whole mutable aggregate and the unit of serialization.
// Store is the shared counter; additions wrap on uint32 overflow, matching
// the pre-rewrite behavior. Channel is fixed at construction.
type BotState struct {
	Groups    []Group    `json:"groups"`
	Proposals []Proposal `json:"proposals"`
	Store     uint32     `json:"store"`
	Channel   string     `json:"channel"`
}

// group returns the first group with the exact name, or nil.
func (s *BotState) group(name string) *Group {
	for i := range s.Groups {
		if s.Groups[i].Name == name {
			return &s.Groups[i]
		}
	}
	return nil
}

// removeGroups drops every group with the exact name and reports whether
// anything was removed.
func (s *BotState) removeGroups(name string) bool {
	kept := s.Groups[:0]
	for _, g := range s.Groups {
		if g.Name != name {
			kept = append(kept, g)
		}
	}
	removed := len(s.Groups) != len(kept)
	s.Groups = kept
	return removed
}

// listOfGroups returns the group names in insertion order.
func (s *BotState) listOfGroups() string {
	names := make([]string, len(s.Groups))
	for i, g := range s.Groups {
		names[i] = g.Name
	}
	return strings.Join(names, ",")
}

func formatProposals(proposals []Proposal) string {
	parts := make([]string, len(proposals))
	for i, p := range proposals {
		parts[i] = p.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MembershipResolver reports the nicknames currently present in a channel.
// Implementations must never block indefinitely; on failure they return an
// empty list, which the engine treats as a valid, empty roster.
type MembershipResolver interface {
	ListMembers(channel string) []User
}

// Engine guards a BotState with one mutex.
type Engine struct {
	mu sync.Mutex
	st BotState
}

// NewEngine returns an engine with empty state bound to the given home
// channel.
func NewEngine(channel string) *Engine {
	return &Engine{st: BotState{Channel: channel}}
}

// Apply parses one chat line, mutates or reads the state accordingly, and
// returns the reply text. Unrecognized lines get the usage text. The whole
// dispatch, including membership resolution during a group proposal, is one
// critical section.
func (e *Engine) Apply(line string, resolver MembershipResolver) string {
	cmd := syntax.Parse(line)
	if cmd == nil {
		unrecognizedTotal.Inc()
		return Usage
	}
	name := commandName(cmd)
	slog.Info("incoming command", "command", name)
	commandsTotal.WithLabelValues(name).Inc()

	e.mu.Lock()
	defer e.mu.Unlock()

	switch c := cmd.(type) {
	case syntax.Add:
		e.st.Store += c.N // wraps on overflow
		return fmt.Sprintf("Store: %d", e.st.Store)

	case syntax.AddUser:
		g := e.st.group(c.Group)
		if g == nil {
			return fmt.Sprintf("No group named %s", c.Group)
		}
		g.Users = append(g.Users, c.User)
		return fmt.Sprintf("Group %s updated: %s", g.Name, g)

	case syntax.GroupAdd:
		// No uniqueness check: a second "group add" with the same name
		// creates a second group.
		g := Group{Name: c.Name, Users: append([]User(nil), c.Users...)}
		e.st.Groups = append(e.st.Groups, g)
		return fmt.Sprintf("New group: %s - %s", c.Name, g)

	case syntax.GroupRemove:
		if e.st.removeGroups(c.Name) {
			return fmt.Sprintf("Group %s has been removed", c.Name)
		}
		return fmt.Sprintf("No such group: %s", c.Name)

	case syntax.Propose:
		return e.propose(c, resolver)

	case syntax.List:
		if c.Option == syntax.ListGroups {
			return fmt.Sprintf("Groups: %s", e.st.listOfGroups())
		}
		return fmt.Sprintf("All proposals: %s", formatProposals(e.st.Proposals))

	case syntax.DumpState:
		payload, err := json.Marshal(&e.st)
		if err != nil {
			return "failed to dump state"
		}
		return string(payload)

	case syntax.RestoreState:
		var next BotState
		if err := json.Unmarshal([]byte(c.Payload), &next); err != nil {
			// Decode failed; the live state stays untouched.
			return "Fail"
		}
		e.st = next
		proposalsOpen.Set(float64(len(e.st.Proposals)))
		return "Success"
	}
	return Usage
}

// propose appends a new proposal. When a group is named, the proposal is
// recorded whether or not the group exists; only the reply differs.
func (e *Engine) propose(c syntax.Propose, resolver MembershipResolver) string {
	p := Proposal{Place: c.Place, Time: c.Time, Created: now()}
	if c.Meet != nil {
		p.Meet = &MeetingPoint{Place: c.Meet.Place, Time: c.Meet.Time}
	}
	defer func() {
		e.st.Proposals = append(e.st.Proposals, p)
		proposalsOpen.Set(float64(len(e.st.Proposals)))
	}()

	if c.Group == "" {
		return fmt.Sprintf("New proposal: go to %s at %s", c.Place, c.Time)
	}

	groupName := c.Group
	p.Group = &groupName

	g := e.st.group(c.Group)
	if g == nil {
		return fmt.Sprintf("-No such group- go to %s at %s", c.Place, c.Time)
	}
	live := resolver.ListMembers(e.st.Channel)
	roster := g.displayRoster(live)
	slog.Info("proposal to group",
		"place", c.Place,
		"time", c.Time,
		"group", g.Name,
		"roster", strings.Join(roster, ","),
	)
	return fmt.Sprintf("%s go to %s at %s", strings.Join(roster, ","), c.Place, c.Time)
}

// ExpireProposals removes every proposal two hours old or older and reports
// how many were removed. A proposal whose age comes out negative (the clock
// moved backward) is conservatively kept. Idempotent: a second sweep right
// after removes nothing.
func (e *Engine) ExpireProposals() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.st.Proposals[:0]
	for _, p := range e.st.Proposals {
		if time.Since(p.Created.Time()) >= proposalTTL {
			continue
		}
		kept = append(kept, p)
	}
	removed := len(e.st.Proposals) - len(kept)
	e.st.Proposals = kept
	if removed > 0 {
		proposalsExpired.Add(float64(removed))
	}
	proposalsOpen.Set(float64(len(e.st.Proposals)))
	return removed
}

// NumProposals reports how many proposals are currently open.
func (e *Engine) NumProposals() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.st.Proposals)
}

// Snapshot serializes the whole aggregate.
func (e *Engine) Snapshot() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	payload, err := json.Marshal(&e.st)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return payload, nil
}

// Restore replaces the aggregate with a decoded snapshot. On decode failure
// the live state is unchanged.
func (e *Engine) Restore(payload []byte) error {
	var next BotState
	if err := json.Unmarshal(payload, &next); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	e.mu.Lock()
	e.st = next
	proposalsOpen.Set(float64(len(e.st.Proposals)))
	e.mu.Unlock()
	return nil
}

func commandName(cmd syntax.Command) string {
	switch cmd.(type) {
	case syntax.Add:
		return "add"
	case syntax.AddUser:
		return "add_user"
	case syntax.GroupAdd:
		return "group_add"
	case syntax.GroupRemove:
		return "group_remove"
	case syntax.Propose:
		return "propose"
	case syntax.List:
		return "list"
	case syntax.DumpState:
		return "dumpstate"
	case syntax.RestoreState:
		return "restore"
	}
	return "unknown"
}
