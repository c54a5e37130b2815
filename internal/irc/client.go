// Package irc implements the thin slice of the IRC client protocol the bot
// needs: registration, joining one channel, PRIVMSG in and out, and a
// continuously tracked channel roster for membership queries.
package irc

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

const dialTimeout = 30 * time.Second

// modePrefixes are the nickname decorations servers prepend in NAMES
// replies (@ for ops, + for voice, and so on).
const modePrefixes = "@+~&%"

// Client is a minimal IRC client bound to one server connection and one
// home channel.
type Client struct {
	conn    net.Conn
	nick    string
	channel string

	// writeMu serializes raw protocol writes.
	writeMu sync.Mutex

	// mu guards the roster bookkeeping below. members holds the current
	// nicknames per channel; pending accumulates a NAMES burst until the
	// end-of-NAMES reply commits it.
	mu      sync.Mutex
	members map[string][]string
	pending map[string][]string
}

// Dial connects to addr and sends the registration commands. The connection
// is not usable for chat until Run drives the server's replies (the channel
// join happens on the welcome message).
func Dial(addr, nick, channel string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	c := &Client{
		conn:    conn,
		nick:    nick,
		channel: channel,
		members: make(map[string][]string),
		pending: make(map[string][]string),
	}
	if err := c.send("NICK %s", nick); err != nil {
		conn.Close()
		return nil, err
	}
	if err := c.send("USER %s 0 * :%s", nick, nick); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Run reads server messages until ctx is canceled or the connection drops.
// Each PRIVMSG is delivered to handler synchronously with the target a
// reply should go to (the channel when the message was addressed to one,
// otherwise the sender's nick), so replies keep their order.
func (c *Client) Run(ctx context.Context, handler func(target, nick, line string)) error {
	go func() {
		<-ctx.Done()
		c.send("QUIT :shutting down")
		c.conn.Close()
	}()

	sc := bufio.NewScanner(c.conn)
	sc.Buffer(make([]byte, 0, 4096), 64*1024)
	for sc.Scan() {
		c.handle(parseMessage(sc.Text()), handler)
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return fmt.Errorf("connection closed by server")
}

// Privmsg sends one line of text to a channel or nick.
func (c *Client) Privmsg(target, text string) error {
	return c.send("PRIVMSG %s :%s", target, text)
}

// ListMembers reports the nicknames currently present in channel, from the
// continuously tracked roster. It never touches the network, so it is safe
// to call from inside the engine's critical section. An unknown channel
// yields an empty roster.
func (c *Client) ListMembers(channel string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.members[channel]...)
}

func (c *Client) send(format string, args ...any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := fmt.Fprintf(c.conn, format+"\r\n", args...); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (c *Client) handle(m message, handler func(target, nick, line string)) {
	switch m.command {
	case "PING":
		if err := c.send("PONG :%s", m.trailing); err != nil {
			slog.Error("failed to answer ping", "error", err)
		}

	case "001": // registered; join the home channel
		if err := c.send("JOIN %s", c.channel); err != nil {
			slog.Error("failed to join channel", "channel", c.channel, "error", err)
		}

	case "353": // NAMES burst: one batch of nicknames
		if len(m.params) == 0 {
			return
		}
		c.collectNames(m.params[len(m.params)-1], strings.Fields(m.trailing))

	case "366": // end of NAMES: commit the burst
		if len(m.params) == 0 {
			return
		}
		c.commitNames(m.params[len(m.params)-1])

	case "JOIN":
		channel := m.trailing
		if len(m.params) > 0 {
			channel = m.params[0]
		}
		c.addMember(channel, nickFromPrefix(m.prefix))

	case "PART":
		if len(m.params) == 0 {
			return
		}
		c.removeMember(m.params[0], nickFromPrefix(m.prefix))

	case "KICK":
		if len(m.params) < 2 {
			return
		}
		c.removeMember(m.params[0], m.params[1])

	case "QUIT":
		c.removeEverywhere(nickFromPrefix(m.prefix))

	case "NICK":
		next := m.trailing
		if next == "" && len(m.params) > 0 {
			next = m.params[0]
		}
		c.renameMember(nickFromPrefix(m.prefix), next)

	case "PRIVMSG":
		if handler == nil || len(m.params) == 0 {
			return
		}
		nick := nickFromPrefix(m.prefix)
		target := m.params[0]
		if !strings.HasPrefix(target, "#") && !strings.HasPrefix(target, "&") {
			// Direct message; replies go back to the sender.
			target = nick
		}
		handler(target, nick, m.trailing)
	}
}

func (c *Client) collectNames(channel string, raw []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range raw {
		c.pending[channel] = append(c.pending[channel], strings.TrimLeft(name, modePrefixes))
	}
}

func (c *Client) commitNames(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members[channel] = c.pending[channel]
	delete(c.pending, channel)
}

func (c *Client) addMember(channel, nick string) {
	if channel == "" || nick == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.members[channel] {
		if existing == nick {
			return
		}
	}
	c.members[channel] = append(c.members[channel], nick)
}

func (c *Client) removeMember(channel, nick string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members[channel] = remove(c.members[channel], nick)
}

func (c *Client) removeEverywhere(nick string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for channel := range c.members {
		c.members[channel] = remove(c.members[channel], nick)
	}
}

func (c *Client) renameMember(from, to string) {
	if from == "" || to == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for channel, names := range c.members {
		for i, name := range names {
			if name == from {
				c.members[channel][i] = to
			}
		}
	}
}

func remove(names []string, nick string) []string {
	kept := names[:0]
	for _, name := range names {
		if name != nick {
			kept = append(kept, name)
		}
	}
	return kept
}
