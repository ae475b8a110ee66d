// internal/channel/channel.go
// Channel state and the ordered store that holds it. Not safe for concurrent
// use; the hub is the only owner.
package channel

import "github.com/erilali/circd/internal/ircmsg"

// DefaultTopic is used when a TOPIC line carries no text.
const DefaultTopic = "No topic provided"

// Channel holds the topic and unread backlog of one channel.
type Channel struct {
	Name  string
	Topic string
	Users []string // not tracked yet, always empty

	backlog []ircmsg.Message
}

// New creates an empty channel with the default topic.
func New(name string) *Channel {
	return &Channel{Name: name, Topic: DefaultTopic}
}

// SetTopic replaces the topic.
func (c *Channel) SetTopic(topic string) {
	c.Topic = topic
}

// Add appends a message to the backlog.
func (c *Channel) Add(msg ircmsg.Message) {
	c.backlog = append(c.backlog, msg)
}

// Len reports the number of unread messages.
func (c *Channel) Len() int {
	return len(c.backlog)
}

// Drain returns the backlog in arrival order and empties it.
func (c *Channel) Drain() []ircmsg.Message {
	msgs := c.backlog
	c.backlog = nil
	return msgs
}

// Store maps channel names to channels, remembering insertion order.
type Store struct {
	channels map[string]*Channel
	order    []string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{channels: make(map[string]*Channel)}
}

// Get looks up a channel by name.
func (s *Store) Get(name string) (*Channel, bool) {
	c, ok := s.channels[name]
	return c, ok
}

// GetOrCreate returns the named channel, creating it first if needed.
func (s *Store) GetOrCreate(name string) *Channel {
	if c, ok := s.channels[name]; ok {
		return c
	}
	c := New(name)
	s.channels[name] = c
	s.order = append(s.order, name)
	return c
}

// Names lists channel names in the order they were first seen.
func (s *Store) Names() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Each calls fn for every channel in insertion order.
func (s *Store) Each(fn func(*Channel)) {
	for _, name := range s.order {
		fn(s.channels[name])
	}
}

// Len reports the number of known channels.
func (s *Store) Len() int {
	return len(s.order)
}
