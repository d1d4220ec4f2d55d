package events

// OpInteractionRecorded names the outbox row written per appended interaction.
const OpInteractionRecorded = "interaction_recorded"

// InteractionRecorded is emitted after every successful interaction append.
// Count is the user's stored interaction total as of that append.
type InteractionRecorded struct {
	UserID  string `json:"userId"`
	EventID string `json:"eventId"`
	Count   int    `json:"count"`
}

// Publisher accepts events without blocking.
type Publisher interface {
	Publish(evt InteractionRecorded) bool
}

// Bus is a lightweight in-process pub-sub implementation backed by a buffered channel.
// It is owned by whoever constructs it; there is no package-level instance.
type Bus struct {
	ch chan InteractionRecorded
}

// NewBus creates a bus with the given buffer size.
func NewBus(buffer int) *Bus {
	if buffer < 0 {
		buffer = 0
	}
	return &Bus{ch: make(chan InteractionRecorded, buffer)}
}

// Publish attempts to enqueue the event without blocking.
// Returns true if published, false if the buffer is full.
func (b *Bus) Publish(evt InteractionRecorded) bool {
	select {
	case b.ch <- evt:
		return true
	default:
		return false
	}
}

// Subscribe returns a read-only channel for consumers.
func (b *Bus) Subscribe() <-chan InteractionRecorded {
	return b.ch
}

// Close ends the stream; consumers ranging over Subscribe return. Publish
// must not be called after Close.
func (b *Bus) Close() { close(b.ch) }

// Len reports queued events.
func (b *Bus) Len() int { return len(b.ch) }
