package workers

import (
	"context"
	"strconv"
	"strings"
	"time"

	go_redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	nodemodels "nodeproof-backend/internal/features/node/models"
	verification "nodeproof-backend/internal/features/verification/service"
	redisplatform "nodeproof-backend/internal/platform/redis"
)

const (
	crawlerStreamKey     = "crawler:observations"
	crawlerConsumerGroup = "nodeproof_backend_consumers"
	crawlerConsumerName  = "nodeproof_crawler_worker"
)

// CrawlerStreamWorker consumes crawler observation events. Each event
// refreshes the node-facts snapshot and may resolve automatic-method
// challenges.
type CrawlerStreamWorker struct {
	rdb    *redisplatform.Client
	engine *verification.Engine
	logger zerolog.Logger
}

func NewCrawlerStreamWorker(rdb *redisplatform.Client, engine *verification.Engine, logger zerolog.Logger) *CrawlerStreamWorker {
	return &CrawlerStreamWorker{rdb: rdb, engine: engine, logger: logger}
}

// Start blocks reading the stream until ctx is cancelled.
func (w *CrawlerStreamWorker) Start(ctx context.Context) {
	err := w.rdb.XGroupCreateMkStream(ctx, crawlerStreamKey, crawlerConsumerGroup, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		w.logger.Error().Err(err).Msg("Failed to create crawler consumer group")
	}

	w.logger.Info().Str("stream", crawlerStreamKey).Msg("Starting crawler stream worker")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Stopping crawler stream worker")
			return
		default:
			entries, err := w.rdb.XReadGroup(ctx, &go_redis.XReadGroupArgs{
				Group:    crawlerConsumerGroup,
				Consumer: crawlerConsumerName,
				Streams:  []string{crawlerStreamKey, ">"},
				Count:    16,
				Block:    5 * time.Second,
			}).Result()
			if err != nil {
				if err != go_redis.Nil && ctx.Err() == nil {
					w.logger.Error().Err(err).Msg("Failed to read crawler stream")
					time.Sleep(time.Second)
				}
				continue
			}

			for _, stream := range entries {
				for _, msg := range stream.Messages {
					w.processMessage(ctx, msg.Values)
					w.rdb.XAck(ctx, crawlerStreamKey, crawlerConsumerGroup, msg.ID)
				}
			}
		}
	}
}

func (w *CrawlerStreamWorker) processMessage(ctx context.Context, values map[string]interface{}) {
	obs := parseObservation(values)
	if obs.NodeID == "" {
		w.logger.Warn().Interface("values", values).Msg("Crawler event missing node_id")
		return
	}

	if err := w.engine.HandleObservation(ctx, obs); err != nil {
		w.logger.Error().Err(err).Str("node_id", obs.NodeID).Msg("Failed to process crawler observation")
	}
}

func parseObservation(values map[string]interface{}) *nodemodels.Observation {
	obs := &nodemodels.Observation{LastSeenAt: time.Now().UTC()}

	obs.NodeID = stringField(values, "node_id")
	obs.IP = stringField(values, "ip")
	obs.UserAgent = stringField(values, "user_agent")
	obs.Version = stringField(values, "version")
	obs.HTTPFileContent = stringField(values, "http_file_content")
	obs.PortReachable = boolField(values, "port_reachable")
	obs.TipsEnabled = boolField(values, "tips_enabled")

	if raw := stringField(values, "uptime_percentage"); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			obs.UptimePercentage = f
		}
	}
	if raw := stringField(values, "last_seen_at"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			obs.LastSeenAt = t
		}
	}
	return obs
}

func stringField(values map[string]interface{}, key string) string {
	s, _ := values[key].(string)
	return s
}

func boolField(values map[string]interface{}, key string) bool {
	s, _ := values[key].(string)
	b, _ := strconv.ParseBool(s)
	return b
}
