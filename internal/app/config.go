package app

import (
	"time"

	"github.com/yungbote/knowledge-server/internal/outbox"
	"github.com/yungbote/knowledge-server/internal/platform/logger"
	"github.com/yungbote/knowledge-server/internal/utils"
)

type Config struct {
	Port        string
	Environment string
	Version     string

	QueryBudget time.Duration

	Dispatcher outbox.Config

	ScoringQueueSize int
	ScoringWorkers   int
	ScoringBudget    time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:        utils.GetEnv("PORT", "8080", log),
		Environment: utils.GetEnv("ENVIRONMENT", "development", log),
		Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),

		QueryBudget: time.Duration(utils.GetEnvAsInt("QUERY_BUDGET_MS", 500, log)) * time.Millisecond,

		Dispatcher: outbox.Config{
			Interval:    time.Duration(utils.GetEnvAsInt("OUTBOX_INTERVAL_MS", 1000, log)) * time.Millisecond,
			BatchSize:   utils.GetEnvAsInt("OUTBOX_BATCH_SIZE", 50, log),
			Concurrency: utils.GetEnvAsInt("OUTBOX_CONCURRENCY", 4, log),
			MaxAttempts: utils.GetEnvAsInt("OUTBOX_MAX_ATTEMPTS", 5, log),
		},

		ScoringQueueSize: utils.GetEnvAsInt("SCORING_QUEUE_SIZE", 256, log),
		ScoringWorkers:   utils.GetEnvAsInt("SCORING_WORKERS", 2, log),
		ScoringBudget:    time.Duration(utils.GetEnvAsInt("SCORING_BUDGET_SECONDS", 10, log)) * time.Second,
	}
}
