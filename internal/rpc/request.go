// internal/rpc/request.go
// Request values sent from circ to circd. Request is a closed set: only the
// types in this file implement it.
package rpc

// Kind is the variant tag written to the "type" field of a frame.
type Kind string

const (
	KindListChannels Kind = "ListChannels"
	KindGetStatus    Kind = "GetStatus"
	KindGetMessages  Kind = "GetMessages"
	KindGetUsers     Kind = "GetUsers"
	KindJoin         Kind = "Join"
	KindPart         Kind = "Part"
	KindSendMessage  Kind = "SendMessage"
	KindQuit         Kind = "Quit"

	KindChannels Kind = "Channels"
	KindStatus   Kind = "Status"
	KindMessages Kind = "Messages"
	KindUsers    Kind = "Users"
	KindError    Kind = "Error"
)

// Request is one of ListChannels, GetStatus, GetMessages, GetUsers, Join,
// Part, SendMessage or Quit.
type Request interface {
	Kind() Kind
	isRequest()
}

type ListChannels struct{}

type GetStatus struct{}

// GetMessages drains the unread backlog of one channel.
type GetMessages struct {
	Channel string `json:"channel"`
}

// GetUsers asks for the users of a channel. The daemon always answers with
// an empty list.
type GetUsers struct {
	Channel string `json:"channel"`
}

type Join struct {
	Channel string `json:"channel"`
}

type Part struct {
	Channel string `json:"channel"`
}

// SendMessage posts text to a channel.
type SendMessage struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// Quit disconnects from the chat server and stops the daemon's dispatcher.
type Quit struct{}

func (ListChannels) Kind() Kind { return KindListChannels }
func (GetStatus) Kind() Kind    { return KindGetStatus }
func (GetMessages) Kind() Kind  { return KindGetMessages }
func (GetUsers) Kind() Kind     { return KindGetUsers }
func (Join) Kind() Kind         { return KindJoin }
func (Part) Kind() Kind         { return KindPart }
func (SendMessage) Kind() Kind  { return KindSendMessage }
func (Quit) Kind() Kind         { return KindQuit }

func (ListChannels) isRequest() {}
func (GetStatus) isRequest()    {}
func (GetMessages) isRequest()  {}
func (GetUsers) isRequest()     {}
func (Join) isRequest()         {}
func (Part) isRequest()         {}
func (SendMessage) isRequest()  {}
func (Quit) isRequest()         {}

// ExpectsResponse reports whether the daemon answers req with a Response.
// Join, Part, SendMessage and Quit are fire-and-forget.
func ExpectsResponse(req Request) bool {
	switch req.(type) {
	case ListChannels, GetStatus, GetMessages, GetUsers:
		return true
	case Join, Part, SendMessage, Quit:
		return false
	default:
		panic("rpc: unknown request type")
	}
}
