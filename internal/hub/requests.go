// internal/hub/requests.go
// Handling of requests forwarded by the socket acceptor.
package hub

import (
	"fmt"

	"github.com/erilali/circd/internal/channel"
	"github.com/erilali/circd/internal/ircmsg"
	"github.com/erilali/circd/internal/rpc"
)

const (
	unknownUser = "Unknown User"
	noMessage   = "No message"
)

// handleCall answers c and reports whether it was Quit.
func (h *Hub) handleCall(c call) bool {
	var resp rpc.Response
	quit := false

	switch r := c.req.(type) {
	case rpc.ListChannels:
		resp = rpc.Channels{Names: h.channels.Names()}
	case rpc.GetStatus:
		resp = h.status()
	case rpc.GetMessages:
		resp = h.drain(r.Channel)
	case rpc.GetUsers:
		resp = rpc.Users{Names: []string{}}
	case rpc.Join:
		h.enqueue(ircmsg.Join(r.Channel))
	case rpc.Part:
		h.enqueue(ircmsg.Part(r.Channel))
	case rpc.SendMessage:
		h.enqueue(ircmsg.Privmsg(r.Channel, r.Text))
	case rpc.Quit:
		h.enqueue(ircmsg.Quit())
		quit = true
	default:
		h.Logger.Errorf("Unhandled request type %T", c.req)
		resp = rpc.ErrorResponse{Text: fmt.Sprintf("unsupported request %T", c.req)}
	}

	if c.reply != nil {
		c.reply <- resp
	}
	return quit
}

func (h *Hub) status() rpc.Status {
	statuses := make([]rpc.ChannelStatus, 0, h.channels.Len())
	h.channels.Each(func(c *channel.Channel) {
		statuses = append(statuses, rpc.ChannelStatus{Name: c.Name, Count: c.Len()})
	})
	return rpc.Status{Channels: statuses}
}

// drain returns and clears the backlog of one channel.
func (h *Hub) drain(name string) rpc.Response {
	c, ok := h.channels.Get(name)
	if !ok {
		return rpc.ErrorResponse{Text: fmt.Sprintf("Unknown channel %s", name)}
	}
	entries := c.Drain()
	messages := make([]rpc.ClientMessage, 0, len(entries))
	for _, m := range entries {
		messages = append(messages, clientMessage(m))
	}
	return rpc.Messages{Messages: messages}
}

func clientMessage(m ircmsg.Message) rpc.ClientMessage {
	user := unknownUser
	if m.HasPrefix {
		user = m.Prefix
	}
	text := noMessage
	if m.HasTrailing {
		text = m.Trailing
	}
	return rpc.ClientMessage{Time: m.Time, User: user, Text: text}
}
