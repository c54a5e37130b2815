package irc

import "strings"

// message is one parsed server line:
//
//	[:prefix] COMMAND [params...] [:trailing]
type message struct {
	prefix   string
	command  string
	params   []string
	trailing string
}

func parseMessage(line string) message {
	var m message
	rest := strings.TrimRight(line, "\r\n")

	if strings.HasPrefix(rest, ":") {
		i := strings.Index(rest, " ")
		if i < 0 {
			return m
		}
		m.prefix = rest[1:i]
		rest = rest[i+1:]
	}

	if i := strings.Index(rest, " :"); i >= 0 {
		m.trailing = rest[i+2:]
		rest = rest[:i]
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return m
	}
	m.command = fields[0]
	m.params = fields[1:]
	return m
}

// nickFromPrefix extracts the nickname from a nick!user@host prefix.
func nickFromPrefix(prefix string) string {
	if i := strings.Index(prefix, "!"); i >= 0 {
		return prefix[:i]
	}
	return prefix
}
