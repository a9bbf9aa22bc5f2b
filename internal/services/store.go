package services

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"repair-intake/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no record matches the given id.
	ErrNotFound = errors.New("record not found")
	// ErrEmptyCallLogField rejects a call log with a blank caller name or notes.
	ErrEmptyCallLogField = errors.New("caller name and notes are required")
)

// RecordStore owns the repair record list and the persisted settings. Every
// mutation is written through to the database before it returns, so the
// in-memory view and storage never diverge across a restart.
type RecordStore struct {
	db *gorm.DB
}

// NewRecordStore creates a record store over an initialized database.
func NewRecordStore(db *gorm.DB) *RecordStore {
	return &RecordStore{db: db}
}

// RecordInput carries the user-entered intake fields. Identity, creation time,
// status and call logs are owned by the store and never come from callers.
type RecordInput struct {
	Name             string `json:"name" binding:"required"`
	Phone            string `json:"phone" binding:"required"`
	ModemModel       string `json:"modemModel"`
	SerialNumber     string `json:"serialNumber"`
	Issue            string `json:"issue"`
	Accessories      string `json:"accessories"`
	EstimatedCost    string `json:"estimatedCost"`
	FinalCost        string `json:"finalCost"`
	FurtherDetails   string `json:"furtherDetails"`
	ReminderDateTime string `json:"reminderDateTime"`
	ReceiverName     string `json:"receiverName"`
	TechnicianName   string `json:"technicianName"`
}

func newestFirstLogs(db *gorm.DB) *gorm.DB {
	return db.Order("seq desc")
}

// List returns the full canonical record list, most recently created first,
// with call logs attached newest-first.
func (s *RecordStore) List() ([]models.RepairRecord, error) {
	var records []models.RepairRecord
	err := s.db.Preload("CallLogs", newestFirstLogs).
		Order("seq desc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	for i := range records {
		if records[i].CallLogs == nil {
			records[i].CallLogs = []models.CallLog{}
		}
	}
	return records, nil
}

// Get returns a single record by id.
func (s *RecordStore) Get(id string) (*models.RepairRecord, error) {
	var record models.RepairRecord
	err := s.db.Preload("CallLogs", newestFirstLogs).
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	if record.CallLogs == nil {
		record.CallLogs = []models.CallLog{}
	}
	return &record, nil
}

// Create opens a new repair case: fresh id, creation timestamp, PENDING
// status and an empty call log list. The new record becomes the head of the
// canonical list.
func (s *RecordStore) Create(in RecordInput) (*models.RepairRecord, error) {
	record := models.RepairRecord{
		ID:               uuid.NewString(),
		Name:             in.Name,
		Phone:            in.Phone,
		ModemModel:       in.ModemModel,
		SerialNumber:     in.SerialNumber,
		Issue:            in.Issue,
		Accessories:      in.Accessories,
		Status:           models.StatusPending,
		CreatedAt:        time.Now().Format(time.RFC3339),
		EstimatedCost:    in.EstimatedCost,
		FinalCost:        in.FinalCost,
		FurtherDetails:   in.FurtherDetails,
		ReminderDateTime: in.ReminderDateTime,
		ReceiverName:     in.ReceiverName,
		TechnicianName:   in.TechnicianName,
		CallLogs:         []models.CallLog{},
	}

	if err := s.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}
	return &record, nil
}

// Update replaces the user-editable fields of the record matching id. The
// record keeps its identity: id, createdAt, status and call logs are
// preserved from the stored row.
func (s *RecordStore) Update(id string, in RecordInput) (*models.RepairRecord, error) {
	record, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	record.Name = in.Name
	record.Phone = in.Phone
	record.ModemModel = in.ModemModel
	record.SerialNumber = in.SerialNumber
	record.Issue = in.Issue
	record.Accessories = in.Accessories
	record.EstimatedCost = in.EstimatedCost
	record.FinalCost = in.FinalCost
	record.FurtherDetails = in.FurtherDetails
	record.ReminderDateTime = in.ReminderDateTime
	record.ReceiverName = in.ReceiverName
	record.TechnicianName = in.TechnicianName

	if err := s.db.Save(record).Error; err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}
	return record, nil
}

// SetStatus replaces only the status of the matching record. There are no
// transition rules: any status may follow any other.
func (s *RecordStore) SetStatus(id string, status models.RepairStatus) error {
	result := s.db.Model(&models.RepairRecord{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to set status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes the record and all of its call logs. Irreversible; the HTTP
// layer holds the confirmation gate.
func (s *RecordStore) Remove(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&models.RepairRecord{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete record: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("record_id = ?", id).Delete(&models.CallLog{}).Error; err != nil {
			return fmt.Errorf("failed to delete call logs: %w", err)
		}
		return nil
	})
}

// AppendCallLog prepends a follow-up contact entry to the record's log list.
// Both fields are required; a blank one rejects the whole operation with no
// state change. The entry's date is captured once, in the display locale.
func (s *RecordStore) AppendCallLog(id, callerName, notes string, lang models.AppLanguage) (*models.CallLog, error) {
	if callerName == "" || notes == "" {
		return nil, ErrEmptyCallLogField
	}

	if _, err := s.Get(id); err != nil {
		return nil, err
	}

	log := models.CallLog{
		RecordID:   id,
		LogID:      shortID(),
		Date:       models.FormatTimestamp(time.Now(), lang),
		CallerName: callerName,
		Notes:      notes,
	}
	if err := s.db.Create(&log).Error; err != nil {
		return nil, fmt.Errorf("failed to append call log: %w", err)
	}
	return &log, nil
}

// LoadSettings reads the persisted settings rows over the hardcoded defaults.
// Missing keys keep their default; nothing persisted means all defaults.
func (s *RecordStore) LoadSettings() (models.AppSettings, error) {
	settings := models.DefaultSettings()

	var rows []models.Setting
	if err := s.db.Find(&rows).Error; err != nil {
		return settings, fmt.Errorf("failed to load settings: %w", err)
	}

	for _, row := range rows {
		switch row.Key {
		case "default_receiver":
			settings.DefaultReceiver = row.Value
		case "default_technician":
			settings.DefaultTechnician = row.Value
		case "language":
			if row.Value != "" {
				settings.Language = models.AppLanguage(row.Value)
			}
		case "theme":
			if row.Value != "" {
				settings.Theme = models.AppTheme(row.Value)
			}
		}
	}
	return settings, nil
}

// SaveSettings atomically replaces the whole persisted settings object.
func (s *RecordStore) SaveSettings(settings models.AppSettings) error {
	rows := []models.Setting{
		{Key: "default_receiver", Value: settings.DefaultReceiver},
		{Key: "default_technician", Value: settings.DefaultTechnician},
		{Key: "language", Value: string(settings.Language)},
		{Key: "theme", Value: string(settings.Theme)},
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Save(&row).Error; err != nil {
				return fmt.Errorf("failed to save setting %s: %w", row.Key, err)
			}
		}
		return nil
	})
}

// SystemSettings returns every persisted key-value row, including the
// operational keys (reminders.sweep_interval, email.*, webhook.*, telegram.*)
// that override the config file at startup.
func (s *RecordStore) SystemSettings() (map[string]string, error) {
	var rows []models.Setting
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load system settings: %w", err)
	}

	settings := make(map[string]string, len(rows))
	for _, row := range rows {
		settings[row.Key] = row.Value
	}
	return settings, nil
}

// SaveSystemSettings upserts arbitrary key-value rows in one transaction.
// Keys not present in the map keep their stored value.
func (s *RecordStore) SaveSystemSettings(settings map[string]string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for key, value := range settings {
			row := models.Setting{Key: key, Value: value}
			if err := tx.Save(&row).Error; err != nil {
				return fmt.Errorf("failed to save setting %s: %w", key, err)
			}
		}
		return nil
	})
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// shortID generates a five character base36 call log id, unique enough within
// one record's log list.
func shortID() string {
	b := make([]byte, 5)
	for i := range b {
		b[i] = base36[rand.Intn(len(base36))]
	}
	return string(b)
}
