package webhooks

import "time"

// Event types dispatched by the node.
const (
	EventBlockMined        = "block.mined"
	EventLedgerCompromised = "ledger.compromised"
	EventLedgerRestored    = "ledger.restored"
)

// Endpoint is one configured webhook receiver.
type Endpoint struct {
	URL    string   `mapstructure:"url"`
	Events []string `mapstructure:"events"` // empty means every event
	Secret string   `mapstructure:"secret"`
}

// Wants reports whether the endpoint subscribes to eventType.
func (e Endpoint) Wants(eventType string) bool {
	if len(e.Events) == 0 {
		return true
	}
	for _, ev := range e.Events {
		if ev == eventType || ev == "*" {
			return true
		}
	}
	return false
}

// Event is the JSON body POSTed to each endpoint.
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// Delivery records the outcome of a single delivery attempt.
type Delivery struct {
	EventID    string
	EventType  string
	URL        string
	StatusCode int
	Attempt    int
	Success    bool
	Error      string
}
