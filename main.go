package main

import (
	golog "log"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"wayuu-ingest/asr"
	"wayuu-ingest/config"
	"wayuu-ingest/database"
	"wayuu-ingest/ffmpeg"
	"wayuu-ingest/handlers"
	"wayuu-ingest/health"
	"wayuu-ingest/pipeline"
	"wayuu-ingest/queue"
	"wayuu-ingest/ratelimit"
	"wayuu-ingest/records"
	"wayuu-ingest/translation"
	"wayuu-ingest/validate"
	"wayuu-ingest/ytdlp"
)

func main() {

	initLogger()

	log.Infof("GitSHA: %s", config.GetGitSHA())
	log.Infof("BuildDate: %s", config.GetBuildDate())

	ffmpeg.Init(log)
	ytdlp.Init(log)
	records.Init(log)
	queue.Init(log)
	validate.Init(log)
	asr.Init(log)
	health.Init(log)
	translation.Init(log)
	pipeline.Init(log)

	gormLogger := logger.New(
		golog.New(os.Stdout, "\r\n", golog.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,        // Ignore ErrRecordNotFound error for logger
			ParameterizedQueries:      true,        // Don't include params in the SQL log
			Colorful:                  false,       // Disable color
		},
	)

	err := os.MkdirAll(config.GetConfigDir(), 0700)
	if err != nil {
		log.Panicf("failed to create config dir %s", config.GetConfigDir())
	}

	// dictionary database
	dbPath := filepath.Join(config.GetConfigDir(), "dictionary.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Panicf("failed to connect to database %s", dbPath)
	}

	// set only a single connection so we don't actually have concurrent writes
	sqlDB, err := db.DB()
	if err != nil {
		log.Panicln("failed to retrieve database")
	}
	sqlDB.SetMaxOpenConns(1)

	db.AutoMigrate(&translation.DictionaryEntry{})

	database.Init(db, log)
	defer database.Fini()

	if err := translation.SeedDictionary(translation.BaseDictionary); err != nil {
		log.Panicf("failed to seed dictionary: %v", err)
	}

	// ingestion record store
	store, err := records.Open(config.GetRecordStorePath())
	if err != nil {
		log.Panicf("failed to open record store: %v", err)
	}

	transcriber, err := asr.FromConfig(asr.Config{
		Provider:            config.GetAsrProvider(),
		OpenAIAPIKey:        config.GetOpenAIAPIKey(),
		WhisperModel:        config.GetWhisperModel(),
		ConfidenceThreshold: config.GetAsrConfidenceThreshold(),
	})
	if err != nil {
		log.Panicf("asr configuration error: %v", err)
	}
	log.Infof("ASR provider: %s", config.GetAsrProvider())

	monitor := health.NewMonitor(config.GetAudioDir(), config.GetRecordStorePath(),
		config.GetHealthCheckInterval())

	svc, err := pipeline.New(pipeline.Config{
		Store:       store,
		Limiter:     ratelimit.New(config.GetRateLimitMinDelay(), config.GetRateLimitMaxDelay()),
		Validator:   validate.New(),
		Transcriber: transcriber,
		Translator:  translation.NewDictionaryTranslator(),
		Monitor:     monitor,
		AudioDir:    config.GetAudioDir(),
		AsrProvider: config.GetAsrProvider(),
		Queue: queue.Options{
			MaxConcurrent: config.GetMaxConcurrentJobs(),
			JobTimeout:    config.GetJobTimeout(),
		},
	})
	if err != nil {
		log.Panicf("failed to build pipeline: %v", err)
	}

	svc.Start()
	defer svc.Stop()

	handlers.Init(log, svc)

	// Initialize Echo
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Routes
	e.POST("/ingest", handlers.IngestPost)
	e.POST("/upload", handlers.UploadPost)
	e.POST("/process/transcriptions", handlers.ProcessTranscriptionsPost)
	e.POST("/process/translations", handlers.ProcessTranslationsPost)
	e.POST("/process/all", handlers.ProcessAllPost)
	e.GET("/status", handlers.StatusGet)
	e.GET("/queue/stats", handlers.QueueStatsGet)
	e.GET("/asr/config", handlers.AsrConfigGet)
	e.GET("/health", handlers.HealthGet)
	e.POST("/health/check", handlers.HealthCheckPost)
	e.DELETE("/records/:id", handlers.RecordDelete)
	e.POST("/records/:id/reset", handlers.RecordResetPost)

	// Start server
	e.Logger.Fatal(e.Start(config.GetListenAddr()))
}
