package outbox

import (
	"encoding/json"

	"github.com/adfleet/adfleet/services/fleet-service/internal/dateutil"
	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
)

// Topic per event type; the Kafka topic name equals EventType.
const (
	TopicAssignmentCreated = "fleet.assignment.created.v1"
	TopicAssignmentUpdated = "fleet.assignment.updated.v1"
	TopicAssignmentDeleted = "fleet.assignment.deleted.v1"
)

// Event is the domain event envelope written to the outbox table.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// AssignmentPayload is the wire body shared by all assignment events. Dates
// travel as YYYY-MM-DD strings.
type AssignmentPayload struct {
	AssignmentID string `json:"assignment_id"`
	AutoID       string `json:"auto_id"`
	AutoNo       string `json:"auto_no"`
	CompanyID    string `json:"company_id"`
	CompanyName  string `json:"company_name"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Days         int    `json:"days"`
	Status       string `json:"status"`
}

func AssignmentEvent(eventType string, a model.Assignment, autoNo string) (Event, error) {
	payload, err := json.Marshal(AssignmentPayload{
		AssignmentID: a.ID,
		AutoID:       a.AutoID,
		AutoNo:       autoNo,
		CompanyID:    a.CompanyID,
		CompanyName:  a.CompanyName,
		StartDate:    dateutil.FormatDate(a.StartDate),
		EndDate:      dateutil.FormatDate(a.EndDate),
		Days:         a.Days,
		Status:       string(a.Status),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "assignment",
		AggregateID:   a.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
