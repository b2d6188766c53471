package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kmz-server/models"

	"github.com/redis/go-redis/v9"
)

const registryHistoryLen = 50

// DownloadRegistry keeps a short per-campaign history of generated archives in
// Redis. It never deletes archive files; retention is handled elsewhere.
type DownloadRegistry struct {
	redisClient *redis.Client
}

func NewDownloadRegistry(redisClient *redis.Client) *DownloadRegistry {
	return &DownloadRegistry{redisClient: redisClient}
}

func campaignKey(campaignID string) string {
	return "kmz:campaign:" + campaignID
}

func fileKey(filename string) string {
	return "kmz:file:" + filename
}

// Record stores rec at the head of its campaign history, keeping the newest 50,
// and indexes it by filename.
func (r *DownloadRegistry) Record(ctx context.Context, rec models.DownloadRecord) error {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal download record: %w", err)
	}

	key := campaignKey(rec.CampaignID)
	pipe := r.redisClient.TxPipeline()
	pipe.LPush(ctx, key, recJSON)
	pipe.LTrim(ctx, key, 0, registryHistoryLen-1)
	pipe.HSet(ctx, fileKey(rec.Filename), map[string]any{
		"campana_id":   rec.CampaignID,
		"download_url": rec.URL,
		"points":       rec.Points,
		"created_at":   rec.CreatedAt.Format(time.RFC3339Nano),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record download %s: %w", rec.Filename, err)
	}
	return nil
}

// Recent returns up to limit records for campaignID, newest first.
func (r *DownloadRegistry) Recent(ctx context.Context, campaignID string, limit int) ([]models.DownloadRecord, error) {
	if limit <= 0 || limit > registryHistoryLen {
		limit = registryHistoryLen
	}
	items, err := r.redisClient.LRange(ctx, campaignKey(campaignID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read download history: %w", err)
	}

	records := make([]models.DownloadRecord, 0, len(items))
	for _, item := range items {
		var rec models.DownloadRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
