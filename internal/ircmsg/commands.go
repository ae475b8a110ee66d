// internal/ircmsg/commands.go
// Outgoing command builders. Every result carries the line terminator.
package ircmsg

import "github.com/sorcix/irc"

func line(m *irc.Message) string {
	return m.String() + Terminator
}

// Nick registers or changes the nickname.
func Nick(nick string) string {
	return line(&irc.Message{Command: irc.NICK, Params: []string{nick}})
}

// User sends the USER registration line with realname as trailing.
func User(realname string) string {
	return line(&irc.Message{
		Command:       irc.USER,
		Params:        []string{program, userMode, "*"},
		Trailing:      realname,
		EmptyTrailing: true,
	})
}

func Join(channel string) string {
	return line(&irc.Message{Command: irc.JOIN, Params: []string{channel}})
}

func Part(channel string) string {
	return line(&irc.Message{Command: irc.PART, Params: []string{channel}})
}

// Privmsg sends text to a channel or nick.
func Privmsg(target, text string) string {
	return line(&irc.Message{
		Command:       irc.PRIVMSG,
		Params:        []string{target},
		Trailing:      text,
		EmptyTrailing: true,
	})
}

// Pong answers a PING, echoing its token.
func Pong(token string) string {
	return line(&irc.Message{Command: irc.PONG, Trailing: token, EmptyTrailing: true})
}

func Quit() string {
	return line(&irc.Message{Command: irc.QUIT})
}
