package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"letraz-harvester/internal/app"
	"letraz-harvester/internal/config"
	"letraz-harvester/internal/coordinator"
	"letraz-harvester/internal/logging"
	"letraz-harvester/internal/store"
	"letraz-harvester/pkg/models"
	"letraz-harvester/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	sources := flag.String("sources", "", "comma-separated sources (default: saved settings)")
	keywords := flag.String("keywords", "", "comma-separated search keywords (default: saved settings)")
	pages := flag.Int("pages", 0, "pages per keyword, 1-10 (default: saved settings)")
	mode := flag.String("mode", "", "search, recommendations or both (default: saved settings)")
	noDetails := flag.Bool("no-details", false, "skip opening each job's detail page")
	checkLogin := flag.String("check-login", "", "report the login state of a site instead of scraping")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	if err := logging.InitializeLogging(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "init logging:", err)
		os.Exit(1)
	}
	defer logging.CloseLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	harvester, err := app.New(ctx, cfg, logging.GetGlobalLogger())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer harvester.Close()

	if *checkLogin != "" {
		status, err := harvester.Coordinator.CheckLogin(ctx, *checkLogin)
		if err != nil {
			exit(harvester, err)
		}
		emit(status)
		return
	}

	settings, err := harvester.Store.GetSettings(ctx, store.DefaultSettings(cfg))
	if err != nil {
		exit(harvester, fmt.Errorf("load settings: %w", err))
	}

	req := models.ScrapeRequest{
		Sources:  splitList(*sources),
		Keywords: splitList(*keywords),
		MaxPages: *pages,
		Mode:     models.ScrapeMode(*mode),
	}
	if *noDetails {
		off := false
		req.FetchFullDetails = &off
	}

	summary, err := harvester.Coordinator.Run(ctx, coordinator.ResolveRunConfig(req, settings))
	if summary != nil {
		emit(summary)
	}
	if err != nil {
		exit(harvester, err)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func emit(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// exit releases resources before leaving; deferred calls do not run after os.Exit
func exit(harvester *app.App, err error) {
	fmt.Fprintln(os.Stderr, err)
	harvester.Close()
	logging.CloseLogging()

	code := 1
	if ce, ok := utils.AsCustomError(err); ok && ce.Code < 500 {
		code = 2
	}
	if errors.Is(err, context.Canceled) {
		code = 130
	}
	os.Exit(code)
}
