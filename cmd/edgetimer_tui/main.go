package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/edgetrack/internal/analytics"
	"github.com/2beens/edgetrack/internal/clock"
	"github.com/2beens/edgetrack/internal/logging"
	"github.com/2beens/edgetrack/internal/timer"
	"github.com/2beens/edgetrack/internal/tui"
)

func main() {
	baseURL := flag.String("url", "http://localhost:9000", "edgetrack service base url")
	userID := flag.String("user", os.Getenv("USER"), "user id sent with every request")
	refreshInterval := flag.Duration("refresh", time.Minute, "analytics refresh interval, 0 disables periodic refresh")
	logsPath := flag.String("logs", "/tmp/edgetimer_tui.log", "log file path")
	flag.Parse()

	// stdout belongs to the terminal ui
	logging.Setup(logging.LoggerSetupParams{
		LogFileName: *logsPath,
		LogLevel:    "info",
	})

	token := os.Getenv("EDGETRACK_APP_SECRET")
	if token == "" {
		fmt.Fprintln(os.Stderr, "EDGETRACK_APP_SECRET not set")
		os.Exit(1)
	}
	if *userID == "" {
		fmt.Fprintln(os.Stderr, "user id not set, use -user")
		os.Exit(1)
	}

	client := timer.NewClient(*baseURL, token, *userID, nil)

	var program *tea.Program
	refresher := analytics.NewRefresher(
		client.Analytics,
		*refreshInterval,
		func(v analytics.Versioned[*analytics.Analytics]) {
			if v.Err != nil {
				log.Warnf("analytics refresh %d: %s", v.Seq, v.Err)
			}
			program.Send(tui.AnalyticsMsg(v))
		},
	)

	model := tui.NewModel(client, func(ctx context.Context) {
		refresher.Refresh(ctx)
	}, clock.System{})
	program = tea.NewProgram(model, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go refresher.Run(ctx)

	log.Infof("edgetimer started against %s as %s", *baseURL, *userID)
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "edgetimer: %s\n", err)
		os.Exit(1)
	}
}
