package models

import (
	"time"
)

// RepairStatus is the workflow state of a repair case. The workflow is a flat
// enumeration: any status may be assigned at any time, there is no transition
// table.
type RepairStatus string

const (
	StatusPending      RepairStatus = "PENDING"
	StatusRepairing    RepairStatus = "REPAIRING"
	StatusCompleted    RepairStatus = "COMPLETED"
	StatusUnrepairable RepairStatus = "UNREPAIRABLE"
	StatusDelivered    RepairStatus = "DELIVERED"
)

// Valid reports whether s is one of the known workflow statuses.
func (s RepairStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRepairing, StatusCompleted, StatusUnrepairable, StatusDelivered:
		return true
	}
	return false
}

// CallLog is one follow-up contact event. Entries are immutable once created
// and are never individually deleted; a record's log list is newest-first.
// Seq is a storage detail used only to keep insertion order stable.
type CallLog struct {
	Seq        uint   `gorm:"primarykey" json:"-"`
	RecordID   string `gorm:"index;not null" json:"-"`
	LogID      string `gorm:"not null" json:"id"`
	Date       string `json:"date"` // locale-formatted, display only
	CallerName string `json:"callerName"`
	Notes      string `json:"notes"`
}

// RepairRecord is one device intake/visit for one customer. Customer identity
// is not a separate entity; visits are grouped by (name, phone) equality at
// query time. CreatedAt is an ISO-8601 string and never changes after
// creation. Seq is the storage ordering key: higher means created later, so
// ORDER BY seq DESC yields the canonical most-recent-first list.
type RepairRecord struct {
	Seq              uint         `gorm:"primarykey" json:"-"`
	ID               string       `gorm:"uniqueIndex;not null" json:"id"`
	Name             string       `json:"name"`
	Phone            string       `json:"phone"`
	ModemModel       string       `json:"modemModel"`
	SerialNumber     string       `json:"serialNumber"`
	Issue            string       `json:"issue"`
	Accessories      string       `json:"accessories"`
	Status           RepairStatus `json:"status"`
	CreatedAt        string       `json:"createdAt"`
	EstimatedCost    string       `json:"estimatedCost"`
	FinalCost        string       `json:"finalCost"`
	FurtherDetails   string       `json:"furtherDetails"`
	ReminderDateTime string       `json:"reminderDateTime"` // YYYY-MM-DDTHH:mm, optional
	ReceiverName     string       `json:"receiverName"`
	TechnicianName   string       `json:"technicianName"`
	CallLogs         []CallLog    `gorm:"foreignKey:RecordID;references:ID" json:"callLogs"`
}

// NotificationLog records one reminder delivery attempt through one channel.
type NotificationLog struct {
	ID       uint      `gorm:"primarykey" json:"id"`
	RecordID string    `json:"record_id"`
	Type     string    `json:"type"`
	Content  string    `json:"content"`
	Status   string    `json:"status"` // success/failed
	SentAt   time.Time `json:"sent_at"`
}

// DiagnosisResult is the structured answer from the AI diagnosis collaborator.
type DiagnosisResult struct {
	PossibleCauses []string `json:"possibleCauses"`
	SuggestedSteps []string `json:"suggestedSteps"`
}
