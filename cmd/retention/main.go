package main

import (
	"context"
	"flag"
	"log"
	"time"

	"adaptive-dialogue-be/internal/config"
	"adaptive-dialogue-be/internal/pkg/logger"
	"adaptive-dialogue-be/internal/repository/unitofwork"
	"adaptive-dialogue-be/internal/service"
	"adaptive-dialogue-be/pkg/database"
	"adaptive-dialogue-be/pkg/events"
	pktNats "adaptive-dialogue-be/pkg/nats"
)

func main() {
	cfg := config.Load()

	activeDays := flag.Int("active-days", cfg.Retention.ActiveDays, "archive sessions idle longer than this")
	archiveDays := flag.Int("archive-days", cfg.Retention.ArchiveDays, "delete archived sessions idle longer than this")
	skipEvents := flag.Bool("skip-events", false, "do not publish lifecycle events")
	flag.Parse()

	appLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	defer appLogger.Sync()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Unable to connect to GORM DB: %v", err)
	}

	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	store := service.NewSessionStore(uowFactory, appLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	report, err := store.RunRetentionCleanup(ctx, *activeDays, *archiveDays)
	if err != nil {
		log.Fatalf("Retention cleanup failed: %v", err)
	}
	log.Printf("Retention cleanup done: archived=%d deleted=%d", report.Archived(), report.Deleted())

	if *skipEvents {
		return
	}

	publisher, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("Warn: NATS unavailable, lifecycle events not published: %v", err)
		return
	}
	defer publisher.Close()

	for _, sessionID := range report.ArchivedIDs {
		if err := publisher.Publish(ctx, events.NewSessionArchivedEvent(sessionID)); err != nil {
			log.Printf("Warn: Failed to publish archive event for %s: %v", sessionID, err)
		}
	}
	for _, sessionID := range report.DeletedIDs {
		if err := publisher.Publish(ctx, events.NewSessionDeletedEvent(sessionID)); err != nil {
			log.Printf("Warn: Failed to publish delete event for %s: %v", sessionID, err)
		}
	}

	summary := events.NewRetentionFinishedEvent(report.Archived(), report.Deleted(), *activeDays, *archiveDays)
	if err := publisher.Publish(ctx, summary); err != nil {
		log.Printf("Warn: Failed to publish retention summary event: %v", err)
	}
}
