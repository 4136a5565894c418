package auditworker

import "time"

const EventName = "auditor/url.requested"

type AuditRequestedEventData struct {
	URL    string   `json:"url" validate:"required"`
	Checks []string `json:"checks,omitempty"`
}

type AuditRequestedEnvelope struct {
	EventName string                  `json:"event_name"`
	EventID   string                  `json:"event_id"`
	TS        time.Time               `json:"ts"`
	Data      AuditRequestedEventData `json:"data"`
}
