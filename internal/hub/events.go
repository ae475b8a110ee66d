// internal/hub/events.go
// Handling of protocol lines received from the chat server.
package hub

import (
	"github.com/sorcix/irc"

	"github.com/erilali/circd/internal/channel"
	"github.com/erilali/circd/internal/ircmsg"
)

// authTarget is the pseudo target servers use for notices sent before
// registration completes. It never becomes a channel.
const authTarget = "AUTH"

func (h *Hub) handleEvent(msg ircmsg.Message) {
	if h.feed != nil {
		h.feed.Publish(msg)
	}

	switch msg.Command {
	case irc.PING:
		h.pong(msg)
	case irc.ERROR:
		h.Logger.LogEvent("error", "server_error", "", msg.Trailing)
	case irc.TOPIC:
		h.setTopic(msg)
	case irc.PRIVMSG, irc.NOTICE:
		h.addMessage(msg)
	default:
		h.Logger.Debugf("Ignoring %s", msg.Command)
	}
}

func (h *Hub) pong(msg ircmsg.Message) {
	token := msg.Trailing
	if !msg.HasTrailing {
		t, ok := msg.Target()
		if !ok {
			h.Logger.LogEvent("warn", "ping_without_token", "", msg.String())
			return
		}
		token = t
	}
	h.enqueue(ircmsg.Pong(token))
}

func (h *Hub) setTopic(msg ircmsg.Message) {
	name, ok := msg.Target()
	if !ok {
		h.Logger.LogEvent("warn", "topic_without_channel", "", msg.String())
		return
	}
	topic := channel.DefaultTopic
	if msg.HasTrailing {
		topic = msg.Trailing
	}
	h.channels.GetOrCreate(name).SetTopic(topic)
	h.Logger.LogEvent("debug", "topic", name, topic)
}

func (h *Hub) addMessage(msg ircmsg.Message) {
	name, ok := msg.Target()
	if !ok {
		h.Logger.LogEvent("warn", "message_without_target", "", msg.String())
		return
	}
	if name == authTarget {
		return
	}
	h.channels.GetOrCreate(name).Add(msg)
	if h.archiver != nil {
		h.archiver.Archive(name, msg)
	}
}
