// internal/ircmsg/message.go
// Parses chat protocol lines into Message values and builds outgoing commands.
package ircmsg

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sorcix/irc"
)

const (
	// Terminator ends every protocol line on the wire.
	Terminator = "\r\n"

	// program is sent as the username field of USER.
	program = "circ"
	// userMode is the fixed mode digit sent with USER.
	userMode = "8"
)

// ErrMalformedLine is returned when a line does not end in CR LF.
var ErrMalformedLine = errors.New("malformed line terminator")

// ParseError reports a line from which no command could be extracted.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Line, e.Reason)
}

// Message is one decoded protocol line. Time is the moment it was read.
type Message struct {
	Time        time.Time
	Prefix      string
	HasPrefix   bool
	Command     string
	Params      []string
	Trailing    string
	HasTrailing bool
}

// Parse decodes a single line with its terminator already removed.
func Parse(line string) (Message, error) {
	// The command is the token right after the optional prefix; a leading
	// space leaves it empty.
	if strings.HasPrefix(line, " ") {
		return Message{}, &ParseError{Line: line, Reason: "no command"}
	}
	m := irc.ParseMessage(line)
	if m == nil || m.Command == "" || strings.Contains(m.Command, " ") {
		return Message{}, &ParseError{Line: line, Reason: "no command"}
	}

	msg := Message{
		Command:     m.Command,
		Params:      m.Params,
		Trailing:    m.Trailing,
		HasTrailing: m.Trailing != "" || m.EmptyTrailing,
	}
	if m.Prefix != nil {
		msg.Prefix = m.Prefix.String()
		msg.HasPrefix = true
	}
	if !msg.HasTrailing {
		msg.foldTrailing()
	}
	return msg, nil
}

// foldTrailing finds a colon-marked parameter the library missed because an
// earlier parameter contains a colon, e.g. "PRIVMSG #a:b :hi".
func (m *Message) foldTrailing() {
	for i, p := range m.Params {
		if strings.HasPrefix(p, ":") {
			rest := append([]string{p[1:]}, m.Params[i+1:]...)
			m.Trailing = strings.Join(rest, " ")
			m.HasTrailing = true
			m.Params = m.Params[:i]
			break
		}
	}
	if len(m.Params) == 0 {
		m.Params = nil
	}
}

// StripTerminator removes the trailing CR LF from a raw line.
func StripTerminator(line string) (string, error) {
	if !strings.HasSuffix(line, Terminator) {
		return "", ErrMalformedLine
	}
	return line[:len(line)-len(Terminator)], nil
}

// Target returns the first parameter, which names the channel for
// TOPIC, PRIVMSG and NOTICE.
func (m Message) Target() (string, bool) {
	if len(m.Params) == 0 {
		return "", false
	}
	return m.Params[0], true
}

// String rebuilds the wire form of the message without a terminator.
func (m Message) String() string {
	wire := irc.Message{
		Command:       m.Command,
		Params:        m.Params,
		Trailing:      m.Trailing,
		EmptyTrailing: m.HasTrailing,
	}
	if m.HasPrefix {
		wire.Prefix = irc.ParsePrefix(m.Prefix)
	}
	return wire.String()
}
