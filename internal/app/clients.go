package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/studyline/studyline-backend/internal/clients/assistant"
	"github.com/studyline/studyline-backend/internal/clients/gcs"
	"github.com/studyline/studyline-backend/internal/clients/meetings"
	"github.com/studyline/studyline-backend/internal/clients/redis"
	"github.com/studyline/studyline-backend/internal/clients/speech"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

type Clients struct {
	Assistant assistant.Client
	Meetings  meetings.Client
	Speech    speech.Client
	Bucket    gcs.BucketService

	// Redis pieces are optional; without REDIS_ADDR the hot cache is skipped
	// and SSE delivery stays process local.
	SSEBus   redis.SSEBus
	HotCache redis.AnswerHotCache
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	assistantClient, err := assistant.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init assistant client: %w", err)
	}
	meetingsClient, err := meetings.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init meetings client: %w", err)
	}
	speechClient, err := speech.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init speech client: %w", err)
	}
	bucket, err := gcs.NewBucketService(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init bucket client: %w", err)
	}

	var bus redis.SSEBus
	var hot redis.AnswerHotCache
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		bus, err = redis.NewSSEBus(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		hot, err = redis.NewAnswerHotCache(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis answer cache: %w", err)
		}
	} else {
		log.Warn("REDIS_ADDR not set; hot cache and cross-replica SSE disabled")
	}

	return Clients{
		Assistant: assistantClient,
		Meetings:  meetingsClient,
		Speech:    speechClient,
		Bucket:    bucket,
		SSEBus:    bus,
		HotCache:  hot,
	}, nil
}
