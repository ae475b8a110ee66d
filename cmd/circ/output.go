// cmd/circ/output.go
// Plain-text rendering of daemon responses.
package main

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/erilali/circd/internal/rpc"
)

var actionPattern = regexp.MustCompile("\x01ACTION ([^\x01]+)\x01")

// printResponse writes resp to w. A nil response prints nothing.
func printResponse(w io.Writer, resp rpc.Response, highlights []string) error {
	switch r := resp.(type) {
	case nil:
		return nil
	case rpc.Channels:
		for _, name := range r.Names {
			fmt.Fprintln(w, name)
		}
	case rpc.Status:
		for _, c := range r.Channels {
			if line := statusLine(c); line != "" {
				fmt.Fprintln(w, line)
			}
		}
	case rpc.Messages:
		for _, m := range r.Messages {
			fmt.Fprintln(w, messageLine(m, highlights))
		}
	case rpc.Users:
		for _, name := range r.Names {
			fmt.Fprintln(w, name)
		}
	case rpc.ErrorResponse:
		return &rpc.RemoteError{Text: r.Text}
	default:
		return fmt.Errorf("unexpected response %s", resp.Kind())
	}
	return nil
}

// statusLine is empty for channels with nothing unread.
func statusLine(c rpc.ChannelStatus) string {
	switch {
	case c.Count == 1:
		return fmt.Sprintf("%s has 1 new message", c.Name)
	case c.Count > 1:
		return fmt.Sprintf("%s has %d new messages", c.Name, c.Count)
	}
	return ""
}

func messageLine(m rpc.ClientMessage, highlights []string) string {
	stamp := m.Time.Local().Format("15:04:05")
	nick, _, _ := strings.Cut(m.User, "!")

	if match := actionPattern.FindStringSubmatch(m.Text); match != nil {
		return fmt.Sprintf("[%s] %s %s", stamp, nick, match[1])
	}

	line := fmt.Sprintf("[%s] %s> %s", stamp, nick, m.Text)
	if highlighted(m.Text, highlights) {
		return "*" + line
	}
	return line
}

func highlighted(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
