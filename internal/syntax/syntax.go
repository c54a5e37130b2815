// Package syntax parses lunchbot chat commands.
//
// A command is one line of free text starting with "lb ". Parsing is an
// ordered cascade of regular expressions; the first rule whose pattern
// matches wins. Rule order is load-bearing: later patterns can be syntactic
// subsets of earlier ones, e.g. "lb add 5" must parse as Add, never as
// AddUser.
package syntax

import (
	"regexp"
	"strconv"
	"strings"
)

// place matches either a bare token (word characters and hyphens) or a
// phrase quoted with matching '...' or "...". The quotes are captured as
// part of the place.
const place = `('[\w\- ]+'|"[\w\- ]+"|[\w\-]+)`

var (
	addRe       = regexp.MustCompile(`lb add (\d+)`)
	addUserRe   = regexp.MustCompile(`lb add (\w+) to (\w+)`)
	groupRe     = regexp.MustCompile(`lb group (?:(add) (\w+) ([\w,]+)|(remove) (\w+))`)
	proposeRe   = regexp.MustCompile(`lb propose ` + place + `(?: at| @)? ([\w:]+)(?: to (\w+))?(?: meet ` + place + ` ([\w:]+))?`)
	listRe      = regexp.MustCompile(`lb list(?: (groups|proposals))?`)
	dumpStateRe = regexp.MustCompile(`lb dumpstate`)
	restoreRe   = regexp.MustCompile(`lb restore (.+)`)
)

// ListOption selects what "lb list" prints.
type ListOption int

const (
	ListProposals ListOption = iota
	ListGroups
)

// Command is one parsed lunchbot command; the concrete type identifies the
// operation.
type Command interface {
	isCommand()
}

// Add adds N to the shared counter.
type Add struct {
	N uint32
}

// AddUser appends a user to an existing group.
type AddUser struct {
	User  string
	Group string
}

// GroupAdd creates a new group with an initial member list. Users are the
// comma-split tokens exactly as typed; empty tokens from stray commas are
// kept.
type GroupAdd struct {
	Name  string
	Users []string
}

// GroupRemove deletes every group with the exact name.
type GroupRemove struct {
	Name string
}

// MeetingPoint is an optional rendezvous before the lunch itself.
type MeetingPoint struct {
	Place string
	Time  string
}

// Propose suggests a place and time. Group is empty when the proposal is
// not addressed to a group. Quotes around a place are preserved.
type Propose struct {
	Place string
	Time  string
	Group string
	Meet  *MeetingPoint
}

// List prints groups or open proposals.
type List struct {
	Option ListOption
}

// DumpState asks for the serialized bot state.
type DumpState struct{}

// RestoreState replaces the bot state with a previously dumped payload.
type RestoreState struct {
	Payload string
}

func (Add) isCommand()          {}
func (AddUser) isCommand()      {}
func (GroupAdd) isCommand()     {}
func (GroupRemove) isCommand()  {}
func (Propose) isCommand()      {}
func (List) isCommand()         {}
func (DumpState) isCommand()    {}
func (RestoreState) isCommand() {}

type rule struct {
	re    *regexp.Regexp
	build func(m []string) Command
}

// rules are tried in order; the first matching pattern decides the outcome,
// even when its constructor rejects the captures.
var rules = []rule{
	{addRe, func(m []string) Command {
		n, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			// Digit sequences that overflow uint32 are not a command.
			return nil
		}
		return Add{N: uint32(n)}
	}},
	{addUserRe, func(m []string) Command {
		return AddUser{User: m[1], Group: m[2]}
	}},
	{groupRe, func(m []string) Command {
		switch {
		case m[1] != "":
			return GroupAdd{Name: m[2], Users: strings.Split(m[3], ",")}
		case m[4] != "":
			return GroupRemove{Name: m[5]}
		}
		return nil
	}},
	{proposeRe, func(m []string) Command {
		cmd := Propose{Place: m[1], Time: m[2], Group: m[3]}
		if m[4] != "" {
			cmd.Meet = &MeetingPoint{Place: m[4], Time: m[5]}
		}
		return cmd
	}},
	{listRe, func(m []string) Command {
		if m[1] == "groups" {
			return List{Option: ListGroups}
		}
		return List{Option: ListProposals}
	}},
	{dumpStateRe, func(m []string) Command {
		return DumpState{}
	}},
	{restoreRe, func(m []string) Command {
		return RestoreState{Payload: m[1]}
	}},
}

// Parse turns one chat line into a typed command. It is pure and total:
// unrecognized input yields nil, never an error.
func Parse(line string) Command {
	for _, r := range rules {
		if m := r.re.FindStringSubmatch(line); m != nil {
			return r.build(m)
		}
	}
	return nil
}
