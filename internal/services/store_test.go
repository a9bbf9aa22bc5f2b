package services

import (
	"database/sql"
	"testing"

	"repair-intake/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sqlitedriver "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// testDB opens an in-memory SQLite database. A single connection is forced so
// every query sees the same memory store.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(sqlitedriver.Dialector{Conn: sqlDB}, &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.RepairRecord{},
		&models.CallLog{},
		&models.Setting{},
		&models.NotificationLog{},
	))
	return db
}

func intake(name, phone string) RecordInput {
	return RecordInput{
		Name:         name,
		Phone:        phone,
		ModemModel:   "TP-Link VR400",
		SerialNumber: "SN-1",
		Issue:        "No DSL sync",
		ReceiverName: "Reza",
	}
}

func TestCreateDefaults(t *testing.T) {
	store := NewRecordStore(testDB(t))

	record, err := store.Create(intake("Ali Reza", "09121234567"))
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.NotEmpty(t, record.CreatedAt)
	assert.Equal(t, models.StatusPending, record.Status)
	assert.Empty(t, record.CallLogs)
}

func TestCreatePrependsAndKeepsIDsUnique(t *testing.T) {
	store := NewRecordStore(testDB(t))

	first, err := store.Create(intake("Ali", "1"))
	require.NoError(t, err)
	second, err := store.Create(intake("Sara", "2"))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID)
	assert.Equal(t, first.ID, records[1].ID)
}

func TestUpdatePreservesIdentityStatusAndLogs(t *testing.T) {
	store := NewRecordStore(testDB(t))

	record, err := store.Create(intake("Ali", "09121234567"))
	require.NoError(t, err)
	require.NoError(t, store.SetStatus(record.ID, models.StatusRepairing))
	_, err = store.AppendCallLog(record.ID, "Sara", "asked for update", models.LangEN)
	require.NoError(t, err)

	in := intake("Ali", "09121234567")
	in.FinalCost = "500,000"
	in.FurtherDetails = "replaced power board"

	updated, err := store.Update(record.ID, in)
	require.NoError(t, err)

	assert.Equal(t, record.ID, updated.ID)
	assert.Equal(t, record.CreatedAt, updated.CreatedAt)
	assert.Equal(t, models.StatusRepairing, updated.Status)
	assert.Equal(t, "500,000", updated.FinalCost)
	assert.Len(t, updated.CallLogs, 1)
}

func TestUpdateUnknownID(t *testing.T) {
	store := NewRecordStore(testDB(t))

	_, err := store.Update("missing", intake("Ali", "1"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetStatusOnlyTouchesStatus(t *testing.T) {
	store := NewRecordStore(testDB(t))

	record, err := store.Create(intake("Ali", "09121234567"))
	require.NoError(t, err)

	require.NoError(t, store.SetStatus(record.ID, models.StatusDelivered))

	after, err := store.Get(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, after.Status)

	// everything else is byte-identical
	after.Status = record.Status
	after.CallLogs = record.CallLogs
	assert.Equal(t, record, after)

	assert.ErrorIs(t, store.SetStatus("missing", models.StatusPending), ErrNotFound)
}

func TestRemoveDeletesRecordAndLogs(t *testing.T) {
	db := testDB(t)
	store := NewRecordStore(db)

	record, err := store.Create(intake("Ali", "09121234567"))
	require.NoError(t, err)
	_, err = store.AppendCallLog(record.ID, "Sara", "note", models.LangEN)
	require.NoError(t, err)

	require.NoError(t, store.Remove(record.ID))

	_, err = store.Get(record.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var orphans int64
	db.Model(&models.CallLog{}).Where("record_id = ?", record.ID).Count(&orphans)
	assert.Zero(t, orphans)

	assert.ErrorIs(t, store.Remove("missing"), ErrNotFound)
}

func TestAppendCallLogValidation(t *testing.T) {
	store := NewRecordStore(testDB(t))

	record, err := store.Create(intake("Ali", "09121234567"))
	require.NoError(t, err)

	_, err = store.AppendCallLog(record.ID, "Sara", "", models.LangEN)
	assert.ErrorIs(t, err, ErrEmptyCallLogField)
	_, err = store.AppendCallLog(record.ID, "", "note", models.LangEN)
	assert.ErrorIs(t, err, ErrEmptyCallLogField)

	after, err := store.Get(record.ID)
	require.NoError(t, err)
	assert.Empty(t, after.CallLogs)
}

func TestAppendCallLogPrepends(t *testing.T) {
	store := NewRecordStore(testDB(t))

	record, err := store.Create(intake("Ali", "09121234567"))
	require.NoError(t, err)

	_, err = store.AppendCallLog(record.ID, "Sara", "first call", models.LangEN)
	require.NoError(t, err)
	_, err = store.AppendCallLog(record.ID, "Reza", "second call", models.LangFA)
	require.NoError(t, err)

	after, err := store.Get(record.ID)
	require.NoError(t, err)
	require.Len(t, after.CallLogs, 2)
	assert.Equal(t, "second call", after.CallLogs[0].Notes)
	assert.Equal(t, "first call", after.CallLogs[1].Notes)
	assert.NotEqual(t, after.CallLogs[0].LogID, after.CallLogs[1].LogID)
	assert.NotEmpty(t, after.CallLogs[0].Date)
}

func TestSettingsDefaultsAndMerge(t *testing.T) {
	db := testDB(t)
	store := NewRecordStore(db)

	settings, err := store.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), settings)

	// partial persisted data keeps defaults for missing keys
	require.NoError(t, db.Create(&models.Setting{Key: "default_receiver", Value: "Reza"}).Error)

	settings, err = store.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "Reza", settings.DefaultReceiver)
	assert.Equal(t, models.LangFA, settings.Language)
	assert.Equal(t, models.ThemeDark, settings.Theme)
}

func TestSystemSettingsRoundTrip(t *testing.T) {
	store := NewRecordStore(testDB(t))

	// the operational keys loaded over the config file at startup
	require.NoError(t, store.SaveSystemSettings(map[string]string{
		"reminders.sweep_interval": "@every 30m",
		"webhook.enabled":          "true",
		"webhook.url":              "https://hooks.example.com/repairs",
	}))

	settings, err := store.SystemSettings()
	require.NoError(t, err)
	assert.Equal(t, "@every 30m", settings["reminders.sweep_interval"])
	assert.Equal(t, "true", settings["webhook.enabled"])

	// a later save updates named keys and leaves the rest alone
	require.NoError(t, store.SaveSystemSettings(map[string]string{
		"webhook.enabled": "false",
	}))

	settings, err = store.SystemSettings()
	require.NoError(t, err)
	assert.Equal(t, "false", settings["webhook.enabled"])
	assert.Equal(t, "https://hooks.example.com/repairs", settings["webhook.url"])
}

func TestSystemSettingsCoexistWithAppSettings(t *testing.T) {
	store := NewRecordStore(testDB(t))

	require.NoError(t, store.SaveSettings(models.AppSettings{
		DefaultReceiver: "Reza",
		Language:        models.LangEN,
		Theme:           models.ThemeDark,
	}))
	require.NoError(t, store.SaveSystemSettings(map[string]string{
		"email.enabled": "true",
	}))

	settings, err := store.SystemSettings()
	require.NoError(t, err)
	assert.Equal(t, "Reza", settings["default_receiver"])
	assert.Equal(t, "true", settings["email.enabled"])

	app, err := store.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "Reza", app.DefaultReceiver)
	assert.Equal(t, models.LangEN, app.Language)
}

func TestSettingsSaveRoundTrip(t *testing.T) {
	store := NewRecordStore(testDB(t))

	saved := models.AppSettings{
		DefaultReceiver:   "Reza",
		DefaultTechnician: "Hamed",
		Language:          models.LangEN,
		Theme:             models.ThemeWhiteOrange,
	}
	require.NoError(t, store.SaveSettings(saved))

	loaded, err := store.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	// saving again replaces the whole object
	saved.Theme = models.ThemeOrangeWhite
	require.NoError(t, store.SaveSettings(saved))
	loaded, err = store.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}
