package host

import (
	"github.com/OCAP2/waypoints/internal/queue"
)

// Recorder is an in-memory Host that keeps every outgoing message.
type Recorder struct {
	Permissions
	messages *queue.Queue[Message]
}

// NewRecorder creates a Recorder using perms for permission lookups.
func NewRecorder(perms Permissions) *Recorder {
	return &Recorder{Permissions: perms, messages: queue.New[Message]()}
}

func (r *Recorder) PermissionLevel(src Source) int {
	return r.Level(src)
}

func (r *Recorder) Broadcast(text string) {
	r.messages.Push(Message{Broadcast: true, Text: text})
}

func (r *Recorder) Reply(src Source, text string) {
	r.messages.Push(Message{To: src.Name, Text: text})
}

// Take returns the messages recorded since the last call.
func (r *Recorder) Take() []Message {
	return r.messages.Drain()
}
