package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erilali/circd/internal/rpc"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		args []string
		want rpc.Request
	}{
		{[]string{"-l"}, rpc.ListChannels{}},
		{[]string{"-s"}, rpc.GetStatus{}},
		{[]string{"-q"}, rpc.Quit{}},
		{[]string{"-j", "-c", "#go"}, rpc.Join{Channel: "#go"}},
		{[]string{"-p", "-c", "#go"}, rpc.Part{Channel: "#go"}},
		{[]string{"-u", "-c", "#go"}, rpc.GetMessages{Channel: "#go"}},
		{[]string{"-w", "-c", "#go"}, rpc.GetUsers{Channel: "#go"}},
		{[]string{"-m", "-c", "#go", "hello", "there"}, rpc.SendMessage{Channel: "#go", Text: "hello there"}},
		{[]string{"--msg", "--channel=#go", "hi"}, rpc.SendMessage{Channel: "#go", Text: "hi"}},
	}
	for _, tt := range tests {
		inv, err := parseArgs(append(tt.args, "--socket", "/tmp/x"))
		require.NoError(t, err, tt.args)
		assert.Equal(t, tt.want, inv.request, tt.args)
		assert.Equal(t, "/tmp/x", inv.socketPath)
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := [][]string{
		{},
		{"-l", "-s"},
		{"-j"},
		{"-u"},
		{"-m", "-c", "#go"},
		{"--bogus"},
	}
	for _, args := range tests {
		_, err := parseArgs(args)
		assert.Error(t, err, args)
	}
}

func TestParseHighlights(t *testing.T) {
	inv, err := parseArgs([]string{"-u", "-c", "#go", "-h", "gopher,,rust"})
	require.NoError(t, err)
	assert.Equal(t, []string{"gopher", "rust"}, inv.highlights)
}

func TestStatusLines(t *testing.T) {
	var buf bytes.Buffer
	err := printResponse(&buf, rpc.Status{Channels: []rpc.ChannelStatus{
		{Name: "#a", Count: 1},
		{Name: "#b", Count: 0},
		{Name: "#c", Count: 7},
	}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "#a has 1 new message\n#c has 7 new messages\n", buf.String())
}

func TestMessageLines(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)
	stamp := "[07:08:09] "

	tests := []struct {
		name string
		msg  rpc.ClientMessage
		want string
	}{
		{"plain", rpc.ClientMessage{Time: at, User: "nick!u@host", Text: "hello"}, stamp + "nick> hello"},
		{"action", rpc.ClientMessage{Time: at, User: "nick!u@host", Text: "\x01ACTION waves\x01"}, stamp + "nick waves"},
		{"highlight", rpc.ClientMessage{Time: at, User: "nick", Text: "hi gopher"}, "*" + stamp + "nick> hi gopher"},
		{"unknown user", rpc.ClientMessage{Time: at, User: "Unknown User", Text: "x"}, stamp + "Unknown User> x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, messageLine(tt.msg, []string{"gopher"}))
		})
	}
}

func TestPrintLists(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printResponse(&buf, rpc.Channels{Names: []string{"#a", "#b"}}, nil))
	require.NoError(t, printResponse(&buf, rpc.Users{Names: []string{}}, nil))
	require.NoError(t, printResponse(&buf, nil, nil))
	assert.Equal(t, "#a\n#b\n", buf.String())
}

func TestPrintErrorResponse(t *testing.T) {
	err := printResponse(&bytes.Buffer{}, rpc.ErrorResponse{Text: "Unknown channel #x"}, nil)
	var remote *rpc.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "Unknown channel #x", remote.Text)
}

func TestRunWithoutDaemon(t *testing.T) {
	err := run([]string{"-l", "--socket", t.TempDir() + "/missing"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is circd running")
}
