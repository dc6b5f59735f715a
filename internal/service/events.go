package service

// Event types published to connected browsers.
const (
	EventRequestCreated = "request.created"
	EventRequestUpdated = "request.updated"
	EventRequestDeleted = "request.deleted"
	EventUploadProgress = "upload.progress"
)

// Event tells open views that a request changed so they re-fetch it.
type Event struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	Action    string `json:"action,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	Progress  int    `json:"progress,omitempty"`
	// UserID limits delivery to one user's connections when set.
	UserID string `json:"-"`
}

// EventPublisher delivers events to connected clients.
type EventPublisher interface {
	Publish(event Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
