package outbox

// Row lifecycle states shared by every adapter that persists outbox rows.
const (
	StatusPending   = "pending"
	StatusPublished = "published"
	StatusFailed    = "failed"
)

// Message is the outbox row persisted inside the same commit as election
// state changes. The worker relay reads pending rows and publishes them to
// the event bus.
type Message struct {
	ID         string
	EventType  string
	Payload    []byte
	Status     string
	RetryCount int
}
