// internal/rpc/response.go
// Response values returned by circd.
package rpc

import "time"

// Response is one of Channels, Status, Messages, Users or ErrorResponse.
type Response interface {
	Kind() Kind
	isResponse()
}

// Channels lists every known channel in the order it was first seen.
type Channels struct {
	Names []string `json:"names"`
}

// ChannelStatus is the unread count of one channel.
type ChannelStatus struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Status struct {
	Channels []ChannelStatus `json:"channels"`
}

// ClientMessage is the client facing view of a buffered protocol message.
type ClientMessage struct {
	Time time.Time `json:"time"`
	User string    `json:"user"`
	Text string    `json:"text"`
}

type Messages struct {
	Messages []ClientMessage `json:"messages"`
}

type Users struct {
	Names []string `json:"names"`
}

// ErrorResponse carries a failure back to the client. Its tag on the wire
// is "Error".
type ErrorResponse struct {
	Text string `json:"text"`
}

func (Channels) Kind() Kind      { return KindChannels }
func (Status) Kind() Kind        { return KindStatus }
func (Messages) Kind() Kind      { return KindMessages }
func (Users) Kind() Kind         { return KindUsers }
func (ErrorResponse) Kind() Kind { return KindError }

func (Channels) isResponse()      {}
func (Status) isResponse()        {}
func (Messages) isResponse()      {}
func (Users) isResponse()         {}
func (ErrorResponse) isResponse() {}

// ExpectedKind returns the response kind the daemon answers req with on
// success, or "" for fire-and-forget requests.
func ExpectedKind(req Request) Kind {
	switch req.(type) {
	case ListChannels:
		return KindChannels
	case GetStatus:
		return KindStatus
	case GetMessages:
		return KindMessages
	case GetUsers:
		return KindUsers
	case Join, Part, SendMessage, Quit:
		return ""
	default:
		panic("rpc: unknown request type")
	}
}
