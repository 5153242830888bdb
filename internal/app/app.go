// Package app wires configuration, storage, messaging and HTTP routing into
// a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/FreeVigilance/HappyBarrier/internal/accessrequests"
	"github.com/FreeVigilance/HappyBarrier/internal/barriers"
	"github.com/FreeVigilance/HappyBarrier/internal/cache"
	"github.com/FreeVigilance/HappyBarrier/internal/config"
	"github.com/FreeVigilance/HappyBarrier/internal/db"
	"github.com/FreeVigilance/HappyBarrier/internal/http/api/admin"
	"github.com/FreeVigilance/HappyBarrier/internal/http/api/front"
	"github.com/FreeVigilance/HappyBarrier/internal/sms"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

// SetupLogging configures logrus level, format and optional file rotation.
func SetupLogging(cfg config.LogConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if cfg.File != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		})
	} else {
		log.SetOutput(os.Stdout)
	}
}

// Migrate opens the database and applies the schema.
func Migrate(ctx context.Context, configPath string) error {
	cfg, err := config.Load(config.ResolveConfigPath(configPath))
	if err != nil {
		return err
	}
	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// NewRouter builds the gin engine with all routes registered. Unsupported
// methods on known paths answer 405 instead of 404.
func NewRouter(conn *gorm.DB, cfg config.Config, engine *accessrequests.Engine, registry *barriers.Registry, smsService *sms.Service) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error": fmt.Sprintf("Method %q not allowed.", c.Request.Method),
		})
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	front.RegisterRoutes(r, conn, cfg.JWT, engine, registry)
	admin.RegisterRoutes(r, conn, cfg.JWT, engine, registry, smsService)
	return r
}

// RunServer boots the API server and the delivery report consumer, shutting
// both down when ctx is cancelled.
func RunServer(ctx context.Context, configPath string) error {
	cfg, err := config.Load(config.ResolveConfigPath(configPath))
	if err != nil {
		return err
	}
	SetupLogging(cfg.Log)

	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	var settingsCache *cache.Cache
	if cfg.Redis.Addr != "" {
		settingsCache, err = cache.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, settings cache disabled")
			settingsCache = nil
		}
	}

	var sender sms.Sender
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSender := sms.NewKafkaSender(cfg.Kafka.Brokers, cfg.Kafka.OutboundTopic)
		defer func() { _ = kafkaSender.Close() }()
		sender = kafkaSender

		reader := sms.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.ReportTopic)
		defer func() { _ = reader.Close() }()
		go func() {
			if errRun := sms.RunConsumer(ctx, reader, conn); errRun != nil {
				log.WithError(errRun).Error("delivery report consumer stopped")
			}
		}()
	} else {
		log.Warn("no kafka brokers configured, sms dispatch disabled")
		sender = sms.NopSender{}
	}

	smsService := sms.NewService(conn, sender, settingsCache)
	engine := accessrequests.NewEngine(conn, smsService)
	registry := barriers.NewRegistry(conn, smsService)

	router := NewRouter(conn, cfg, engine, registry, smsService)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("server listening")
		if errListen := server.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
			errCh <- errListen
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case errListen := <-errCh:
		return errListen
	}
}

// requestLogger emits one structured line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("request")
	}
}
