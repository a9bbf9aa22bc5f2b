package main

import (
	"strconv"
	"strings"

	"repair-intake/internal/api"
	"repair-intake/internal/config"
	"repair-intake/internal/database"
	"repair-intake/internal/logger"
	"repair-intake/internal/models"
	"repair-intake/internal/scheduler"
	"repair-intake/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// loadSettingsFromDB overrides config values with settings saved from the
// settings screen, so channel and scheduling changes survive restarts without
// editing the YAML file.
func loadSettingsFromDB(cfg *config.Config, db *gorm.DB, log *zap.Logger) {
	var settings []models.Setting
	if err := db.Find(&settings).Error; err != nil {
		log.Warn("failed to load settings from database", zap.Error(err))
		return
	}

	settingsMap := make(map[string]string)
	for _, s := range settings {
		settingsMap[s.Key] = s.Value
	}

	if val, ok := settingsMap["reminders.sweep_interval"]; ok && val != "" {
		cfg.Reminders.SweepInterval = val
	}

	if val, ok := settingsMap["email.enabled"]; ok {
		cfg.Notifications.Email.Enabled = val == "true"
	}
	if val, ok := settingsMap["email.smtp_host"]; ok {
		cfg.Notifications.Email.SMTPHost = val
	}
	if val, ok := settingsMap["email.smtp_port"]; ok {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Notifications.Email.SMTPPort = port
		}
	}
	if val, ok := settingsMap["email.from"]; ok {
		cfg.Notifications.Email.From = val
	}
	if val, ok := settingsMap["email.password"]; ok {
		cfg.Notifications.Email.Password = val
	}
	if val, ok := settingsMap["email.to"]; ok && val != "" {
		cfg.Notifications.Email.To = strings.Split(val, ",")
	}

	if val, ok := settingsMap["webhook.enabled"]; ok {
		cfg.Notifications.Webhook.Enabled = val == "true"
	}
	if val, ok := settingsMap["webhook.url"]; ok {
		cfg.Notifications.Webhook.URL = val
	}

	if val, ok := settingsMap["telegram.enabled"]; ok {
		cfg.Notifications.Telegram.Enabled = val == "true"
	}
	if val, ok := settingsMap["telegram.bot_token"]; ok {
		cfg.Notifications.Telegram.BotToken = val
	}
	if val, ok := settingsMap["telegram.chat_id"]; ok {
		cfg.Notifications.Telegram.ChatID = val
	}
	if val, ok := settingsMap["telegram.proxy"]; ok {
		cfg.Notifications.Telegram.Proxy = val
	}
}

func main() {
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Server.Mode)
	defer log.Sync()

	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	log.Info("database initialized", zap.String("path", cfg.Database.Path))

	loadSettingsFromDB(cfg, db, log)

	// Initialize services
	store := services.NewRecordStore(db)
	tracker := services.NewReminderTracker()
	notify := services.NewNotifyService(&cfg.Notifications, db, log)
	reminders := services.NewReminderService(store, tracker, notify, log)
	diagnosis := services.NewDiagnosisService(&cfg.AI)

	// Initialize scheduler
	sched := scheduler.NewScheduler(reminders, log)
	if err := sched.Start(cfg.Reminders.SweepInterval); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// Setup Gin
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// Enable CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Setup API routes
	handler := api.NewHandler(store, reminders, diagnosis, notify, log)
	api.SetupRoutes(r, handler)

	// Serve frontend
	r.Static("/static", "./web/dist")
	r.GET("/", func(c *gin.Context) {
		c.File("./web/dist/index.html")
	})

	addr := ":" + cfg.Server.Port
	log.Info("server starting", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
