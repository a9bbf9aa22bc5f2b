package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"repair-intake/internal/config"
	"repair-intake/internal/models"

	"go.uber.org/zap"
	"golang.org/x/net/proxy"
	"gorm.io/gorm"
)

// Notifier interface for different notification channels
type Notifier interface {
	Send(record *models.RepairRecord) error
}

// NotifyService fans a due reminder out to every enabled channel and keeps a
// delivery history in the database.
type NotifyService struct {
	notifiers []Notifier
	db        *gorm.DB
	log       *zap.Logger
}

// NewNotifyService creates a notification service from the configured
// channels. With no channel enabled it is inert.
func NewNotifyService(cfg *config.NotificationsConfig, db *gorm.DB, log *zap.Logger) *NotifyService {
	service := &NotifyService{
		notifiers: make([]Notifier, 0),
		db:        db,
		log:       log,
	}

	if cfg.Email.Enabled {
		service.notifiers = append(service.notifiers, NewEmailNotifier(&cfg.Email))
	}
	if cfg.Webhook.Enabled {
		service.notifiers = append(service.notifiers, NewWebhookNotifier(&cfg.Webhook))
	}
	if cfg.Telegram.Enabled {
		service.notifiers = append(service.notifiers, NewTelegramNotifier(&cfg.Telegram))
	}

	return service
}

// SendReminder sends the reminder through all enabled channels. Partial
// success counts as success; the per-channel outcome is recorded either way.
func (s *NotifyService) SendReminder(record *models.RepairRecord) error {
	var lastErr error
	successCount := 0

	for _, notifier := range s.notifiers {
		notifierType := fmt.Sprintf("%T", notifier)
		if err := notifier.Send(record); err != nil {
			s.log.Error("notification failed",
				zap.String("channel", notifierType),
				zap.String("record_id", record.ID),
				zap.Error(err))
			lastErr = err
			s.recordNotification(record, notifier, "failed")
			continue
		}

		s.recordNotification(record, notifier, "success")
		successCount++
	}

	if successCount > 0 {
		return nil
	}
	return lastErr
}

// History returns the most recent delivery attempts, newest first.
func (s *NotifyService) History(limit int) ([]models.NotificationLog, error) {
	var logs []models.NotificationLog
	err := s.db.Order("sent_at desc").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load notification history: %w", err)
	}
	return logs, nil
}

func (s *NotifyService) recordNotification(record *models.RepairRecord, notifier Notifier, status string) {
	entry := &models.NotificationLog{
		RecordID: record.ID,
		Type:     fmt.Sprintf("%T", notifier),
		Content:  fmt.Sprintf("Follow-up reminder for %s (%s)", record.Name, record.ModemModel),
		Status:   status,
		SentAt:   time.Now(),
	}
	if err := s.db.Create(entry).Error; err != nil {
		s.log.Error("failed to record notification",
			zap.String("record_id", record.ID),
			zap.Error(err))
	}
}

func reminderBody(record *models.RepairRecord) string {
	return fmt.Sprintf(`Repair follow-up reminder

Customer: %s
Phone: %s
Device: %s (SN %s)
Status: %s
Reminder: %s
Reported issue: %s`,
		record.Name,
		record.Phone,
		record.ModemModel,
		record.SerialNumber,
		record.Status,
		record.ReminderDateTime,
		record.Issue,
	)
}

// EmailNotifier sends email notifications
type EmailNotifier struct {
	config *config.EmailConfig
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{config: cfg}
}

// Send sends email notification
func (e *EmailNotifier) Send(record *models.RepairRecord) error {
	subject := fmt.Sprintf("Repair follow-up reminder: %s", record.Name)

	message := fmt.Sprintf("From: %s\r\n", e.config.From)
	message += fmt.Sprintf("To: %s\r\n", strings.Join(e.config.To, ","))
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "Content-Type: text/plain; charset=UTF-8\r\n"
	message += "\r\n"
	message += reminderBody(record)

	auth := smtp.PlainAuth("", e.config.From, e.config.Password, e.config.SMTPHost)

	addr := fmt.Sprintf("%s:%d", e.config.SMTPHost, e.config.SMTPPort)
	err := smtp.SendMail(addr, auth, e.config.From, e.config.To, []byte(message))
	if err != nil {
		// QQ mail and some other providers return "short response" even when
		// the mail went out. Ignore that specific error.
		if !strings.Contains(err.Error(), "short response") {
			return fmt.Errorf("failed to send email: %w", err)
		}
	}
	return nil
}

// WebhookNotifier sends webhook notifications
type WebhookNotifier struct {
	config *config.WebhookConfig
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(cfg *config.WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{config: cfg}
}

// Send sends webhook notification
func (w *WebhookNotifier) Send(record *models.RepairRecord) error {
	payload := map[string]interface{}{
		"record_id":     record.ID,
		"customer":      record.Name,
		"phone":         record.Phone,
		"modem_model":   record.ModemModel,
		"serial_number": record.SerialNumber,
		"status":        record.Status,
		"reminder":      record.ReminderDateTime,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := http.Post(w.config.URL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// TelegramNotifier sends Telegram notifications
type TelegramNotifier struct {
	config *config.TelegramConfig
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(cfg *config.TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{config: cfg}
}

// Send sends Telegram notification
func (t *TelegramNotifier) Send(record *models.RepairRecord) error {
	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.config.BotToken)

	payload := map[string]interface{}{
		"chat_id": t.config.ChatID,
		"text":    reminderBody(record),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	// Optional SOCKS5 proxy for networks where the bot API is unreachable
	if t.config.Proxy != "" {
		dialer, err := proxy.SOCKS5("tcp", t.config.Proxy, nil, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 proxy: %w", err)
		}
		client.Transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			},
		}
	}

	resp, err := client.Post(apiURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}
