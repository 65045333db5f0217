package events

import (
	"encoding/json"
	"time"
)

// Envelope is the shared event shape persisted to module outboxes and relayed
// to the bus by the worker process.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	SourceService string          `json:"source_service"`
	OccurredAt    time.Time       `json:"occurred_at_utc"`
	EntityType    string          `json:"entity_type"`
	EntityID      string          `json:"entity_id"`
	SchemaVersion int             `json:"schema_version"`
	PartitionKey  string          `json:"partition_key"`
	Data          json.RawMessage `json:"data"`
}

func New(
	eventID string,
	eventType string,
	source string,
	entityType string,
	entityID string,
	occurredAt time.Time,
	data map[string]any,
) (Envelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       eventID,
		EventType:     eventType,
		SourceService: source,
		EntityType:    entityType,
		EntityID:      entityID,
		OccurredAt:    occurredAt.UTC(),
		SchemaVersion: 1,
		PartitionKey:  entityID,
		Data:          payload,
	}, nil
}
