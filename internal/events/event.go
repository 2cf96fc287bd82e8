// Package events publishes registry update notifications to NATS JetStream so
// downstream consumers (dashboards, audit) can follow manifest churn without
// polling the registry themselves.
package events

import "time"

// UpdateEvent describes one applied manifest reconciliation.
type UpdateEvent struct {
	ID            string    `json:"id"`
	ServiceIDHash string    `json:"service_id_hash"`
	SchemaHash    string    `json:"schema_hash"`
	Added         int       `json:"added"`
	Removed       int       `json:"removed"`
	Operations    int       `json:"operations"`
	Timestamp     time.Time `json:"timestamp"`
}
