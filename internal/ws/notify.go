package ws

import (
	"encoding/json"
	"time"

	"hospital-jobs/internal/domain"
)

const EventBatchCompleted = "batch_completed"

// Notifier publishes pipeline events on a hub.
type Notifier struct {
	hub *Hub
}

func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

func (n *Notifier) BatchCompleted(evt domain.BatchEvent) {
	if n == nil || n.hub == nil {
		return
	}
	if evt.Type == "" {
		evt.Type = EventBatchCompleted
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	b, err := json.Marshal(evt)
	if err != nil {
		n.hub.logger.Printf("ws=notify status=error err=%v", err)
		return
	}
	n.hub.Broadcast(b)
}
