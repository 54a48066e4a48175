package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"trademark-risk-eval/internal/api"
	"trademark-risk-eval/internal/scoring"
	"trademark-risk-eval/internal/usp"
)

func main() {
	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		if parsed, err := logrus.ParseLevel(level); err == nil {
			logrus.SetLevel(parsed)
		} else {
			logrus.WithError(err).Warn("ignoring invalid LOG_LEVEL")
		}
	}

	baseDir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}

	thresholds, err := scoring.LoadThresholds(strings.TrimSpace(os.Getenv("SCORING_CONFIG")))
	if err != nil {
		logrus.Fatalf("load scoring config: %v", err)
	}
	if v := strings.TrimSpace(os.Getenv("FALSE_POSITIVE_ACCURACY")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			thresholds.FalsePositiveAccuracy = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("FALSE_POSITIVE_COMBINED")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			thresholds.FalsePositiveCombined = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("INCLUSION_COMBINED")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			thresholds.InclusionCombined = n
		}
	}
	if err := thresholds.Validate(); err != nil {
		logrus.Fatalf("invalid scoring thresholds: %v", err)
	}

	searchCfg := usp.Config{
		APIKey:  os.Getenv("SEARCH_API_KEY"),
		BaseURL: os.Getenv("SEARCH_BASE_URL"),
	}
	if timeout := os.Getenv("SEARCH_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			searchCfg.Timeout = d
		}
	}
	if ttl := os.Getenv("SEARCH_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			searchCfg.CacheTTL = d
		}
	}
	if size := os.Getenv("SEARCH_CACHE_SIZE"); size != "" {
		if v, err := strconv.Atoi(size); err == nil {
			searchCfg.CacheSize = v
		}
	}
	if rows := os.Getenv("SEARCH_ROWS"); rows != "" {
		if v, err := strconv.Atoi(rows); err == nil {
			searchCfg.Rows = v
		}
	}

	cfg := api.Config{
		DBPath: filepath.Join(baseDir, "data", "trademark-risk.db"),
		AllowedOrigins: []string{
			"http://localhost:1000",
			"http://127.0.0.1:1000",
		},
		Thresholds:   thresholds,
		SearchConfig: searchCfg,
	}
	if override := strings.TrimSpace(os.Getenv("DB_PATH")); override != "" {
		cfg.DBPath = override
	}
	if origins := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); origins != "" {
		cfg.AllowedOrigins = nil
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer server.Close()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "2000"
	}

	logrus.WithFields(logrus.Fields{
		"port":               port,
		"db":                 cfg.DBPath,
		"inclusion_combined": thresholds.InclusionCombined,
		"search_enabled":     strings.TrimSpace(searchCfg.APIKey) != "",
	}).Info("starting trademark-risk-eval backend")
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
