package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/edgetrack/internal/analytics"
	"github.com/2beens/edgetrack/internal/config"
	"github.com/2beens/edgetrack/internal/db"
	"github.com/2beens/edgetrack/internal/logging"
	"github.com/2beens/edgetrack/internal/sessions"
	"github.com/2beens/edgetrack/pkg"
)

type backup struct {
	UserID    string              `json:"userId"`
	CreatedAt time.Time           `json:"createdAt"`
	Summary   analytics.Analytics `json:"summary"`
	Sessions  []sessions.Session  `json:"sessions"`
}

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	userID := flag.String("user", "", "user whose history is backed up")
	outDir := flag.String("out", "./backups", "backup output directory")
	limit := flag.Int("limit", 0, "max sessions to back up, 0 for the configured history limit")
	flag.Parse()

	logging.Setup(logging.LoggerSetupParams{
		LogToStdout: true,
		LogLevel:    "info",
	})

	log.Println("starting sessions backup ...")

	if *userID == "" {
		log.Fatalln("user not specified, use -user")
	}

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}
	if *limit <= 0 {
		*limit = cfg.HistoryLimit
	}

	exists, err := pkg.PathExists(*outDir, true)
	if err != nil {
		log.Fatalf("check output dir %s: %s", *outDir, err)
	}
	if !exists {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			log.Fatalf("create output dir %s: %s", *outDir, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: os.Getenv("EDGETRACK_DB_PASS"),
	})
	if err != nil {
		log.Fatalf("new db pool: %s", err)
	}
	defer dbPool.Close()

	repo := sessions.NewRepo(dbPool)
	history, err := repo.ListSessions(ctx, sessions.ListParams{
		UserID: *userID,
		Limit:  *limit,
	})
	if err != nil {
		log.Fatalf("list sessions: %s", err)
	}

	now := time.Now()
	fileName := filepath.Join(*outDir, fmt.Sprintf("sessions-%s-%s.json", *userID, now.Format("20060102-150405")))
	if err := writeBackup(fileName, backup{
		UserID:    *userID,
		CreatedAt: now,
		Summary:   analytics.Compute(history),
		Sessions:  history,
	}); err != nil {
		log.Fatalf("write backup: %s", err)
	}

	log.Printf("backed up %d sessions to %s", len(history), fileName)
}

func writeBackup(fileName string, b backup) error {
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", fileName, err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(b); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return f.Sync()
}
