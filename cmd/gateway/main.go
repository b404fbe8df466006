package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bluebook-labs/satprep/internal/ai"
	api "github.com/bluebook-labs/satprep/internal/api/http"
	"github.com/bluebook-labs/satprep/internal/auth"
	"github.com/bluebook-labs/satprep/internal/config"
	"github.com/bluebook-labs/satprep/internal/db"
	"github.com/bluebook-labs/satprep/internal/engine"
	"github.com/bluebook-labs/satprep/internal/images"
	"github.com/bluebook-labs/satprep/internal/notify"
	"github.com/bluebook-labs/satprep/internal/proctor"
	"github.com/bluebook-labs/satprep/internal/report"
	"github.com/bluebook-labs/satprep/internal/results"
	"github.com/bluebook-labs/satprep/internal/scoring"
	"github.com/bluebook-labs/satprep/internal/storage"
	"github.com/bluebook-labs/satprep/internal/testbank"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	tests := testbank.NewSQLStore(dbh)
	resStore := results.NewSQLStore(dbh)
	sessStore := proctor.NewSQLStore(dbh)
	events := notify.NewEventRepo(dbh)

	// --- Scale table ---
	var scale scoring.ScaleMapper = scoring.DefaultScale()
	if cfg.ScaleTablePath != "" {
		t, err := scoring.LoadScaleTable(cfg.ScaleTablePath)
		if err != nil {
			log.Fatalf("scale table: %v", err)
		}
		scale = t
	}

	// --- Image hosting + resolution ---
	var imgCache images.Cache = images.NewMemoryCache()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("redis unavailable (%v), falling back to in-memory image cache", err)
		} else {
			imgCache = images.NewRedisCache(rdb)
		}
	}
	resolver := images.NewTelegramResolver(cfg.Telegram, imgCache, cfg.RetryMax, cfg.RetryBaseDelay)

	var blobs storage.BlobStore
	if cfg.Telegram.IsEnabled() {
		blobs = storage.NewTelegramStore(cfg.Telegram)
	} else {
		fs, err := storage.NewFSStore("./data")
		if err != nil {
			log.Fatalf("blob store: %v", err)
		}
		blobs = fs
	}

	// --- Scoring pipeline ---
	analyzer := ai.NewClient(cfg.AI, cfg.RetryMax, cfg.RetryBaseDelay)
	notifier := notify.NewTelegramNotifier(cfg.Telegram)
	proctorSvc := proctor.NewService(sessStore, resStore, analyzer, scale, notifier, events, cfg.ScoreConcurrency)

	// --- Delivery engine ---
	durations := [testbank.ModuleCount]time.Duration{
		time.Duration(cfg.VerbalModuleSec) * time.Second,
		time.Duration(cfg.VerbalModuleSec) * time.Second,
		time.Duration(cfg.QuantModuleSec) * time.Second,
		time.Duration(cfg.QuantModuleSec) * time.Second,
	}
	delivery := api.NewDelivery(engine.NewRegistry(), tests, resStore, sessStore, scale, durations)

	authSvc := auth.NewAuthService(cfg.AuthSecret, cfg.AdminUser, cfg.AdminPassHash)

	router := api.NewRouter(api.Deps{
		Auth:        authSvc,
		Delivery:    delivery,
		Tests:       tests,
		Results:     resStore,
		Sessions:    sessStore,
		Proctor:     proctorSvc,
		Blobs:       blobs,
		Resolver:    resolver,
		Report:      &report.Generator{ResourceURL: cfg.PublicURL + "/resources"},
		CORSOrigins: cfg.CORSOrigins,
	})

	log.Printf("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, router))
}
