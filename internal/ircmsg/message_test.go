package ircmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		prefix   string
		command  string
		params   []string
		trailing string
		hasTrail bool
	}{
		{
			name:     "privmsg with prefix",
			line:     ":nick!user@host PRIVMSG #rust :hello world",
			prefix:   "nick!user@host",
			command:  "PRIVMSG",
			params:   []string{"#rust"},
			trailing: "hello world",
			hasTrail: true,
		},
		{
			name:     "ping",
			line:     "PING :server.example.com",
			command:  "PING",
			trailing: "server.example.com",
			hasTrail: true,
		},
		{
			name:    "no trailing",
			line:    ":server 001 circ",
			prefix:  "server",
			command: "001",
			params:  []string{"circ"},
		},
		{
			name:     "empty trailing",
			line:     "TOPIC #go :",
			command:  "TOPIC",
			params:   []string{"#go"},
			trailing: "",
			hasTrail: true,
		},
		{
			name:     "colons inside trailing are kept",
			line:     "NOTICE AUTH :*** Looking up: your hostname",
			command:  "NOTICE",
			params:   []string{"AUTH"},
			trailing: "*** Looking up: your hostname",
			hasTrail: true,
		},
		{
			name:     "several params",
			line:     ":srv 353 me = #chan :a b c",
			prefix:   "srv",
			command:  "353",
			params:   []string{"me", "=", "#chan"},
			trailing: "a b c",
			hasTrail: true,
		},
		{
			name:     "colon inside a middle param",
			line:     ":nick!u@h PRIVMSG #a:b :hi there",
			prefix:   "nick!u@h",
			command:  "PRIVMSG",
			params:   []string{"#a:b"},
			trailing: "hi there",
			hasTrail: true,
		},
		{
			name:     "double spaces are kept",
			line:     "CMD a  b :x  y",
			command:  "CMD",
			params:   []string{"a", "", "b"},
			trailing: "x  y",
			hasTrail: true,
		},
		{
			name:    "command only",
			line:    "QUIT",
			command: "QUIT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Parse(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.prefix, msg.Prefix)
			assert.Equal(t, tt.prefix != "", msg.HasPrefix)
			assert.Equal(t, tt.command, msg.Command)
			assert.Equal(t, tt.params, msg.Params)
			assert.Equal(t, tt.trailing, msg.Trailing)
			assert.Equal(t, tt.hasTrail, msg.HasTrailing)
			assert.Equal(t, tt.line, msg.String())
		})
	}
}

func TestParseNoCommand(t *testing.T) {
	for _, line := range []string{"", ":prefix.only", " PING", ":p  CMD"} {
		_, err := Parse(line)
		var perr *ParseError
		require.ErrorAs(t, err, &perr, "line %q", line)
		assert.Equal(t, line, perr.Line)
	}
}

func TestStripTerminator(t *testing.T) {
	line, err := StripTerminator("PING :x\r\n")
	require.NoError(t, err)
	assert.Equal(t, "PING :x", line)

	for _, raw := range []string{"PING :x\n", "PING :x", "PING :x\n\r", "\n"} {
		_, err := StripTerminator(raw)
		assert.ErrorIs(t, err, ErrMalformedLine, "raw %q", raw)
	}
}

func TestCommands(t *testing.T) {
	assert.Equal(t, "NICK circ\r\n", Nick("circ"))
	assert.Equal(t, "USER circ 8 * :Real Name\r\n", User("Real Name"))
	assert.Equal(t, "JOIN #go\r\n", Join("#go"))
	assert.Equal(t, "PART #go\r\n", Part("#go"))
	assert.Equal(t, "PRIVMSG #go :hi there\r\n", Privmsg("#go", "hi there"))
	assert.Equal(t, "PONG :server.example.com\r\n", Pong("server.example.com"))
	assert.Equal(t, "QUIT\r\n", Quit())
}

func TestCommandsParseBack(t *testing.T) {
	line, err := StripTerminator(Privmsg("#go", "hello  spaced  text"))
	require.NoError(t, err)
	msg, err := Parse(line)
	require.NoError(t, err)
	assert.Equal(t, "PRIVMSG", msg.Command)
	assert.Equal(t, []string{"#go"}, msg.Params)
	assert.Equal(t, "hello  spaced  text", msg.Trailing)
}
