package services

import (
	"context"
	"strings"

	"kmz-server/logging"
	"kmz-server/metrics"
	"kmz-server/models"
	"kmz-server/utils/errors"

	"go.mongodb.org/mongo-driver/bson"
)

type CoordinateService struct {
	store RecordStore
}

func NewCoordinateService(store RecordStore) *CoordinateService {
	return &CoordinateService{store: store}
}

// FetchCoordinates returns the (lon, lat) of every usable record filed under
// campaignID, in store order. Records without a usable location are skipped.
// Store failures are returned as StoreUnavailable.
func (s *CoordinateService) FetchCoordinates(ctx context.Context, campaignID string) ([]models.Coordinate, error) {
	filterValue := StripQuotes(campaignID)

	var coords []models.Coordinate
	skipped := 0
	err := s.store.EachRecord(ctx, filterValue, func(record bson.Raw) error {
		metrics.RecordsScanned.Inc()
		coord, ok := normalizeRecord(record)
		if !ok {
			skipped++
			metrics.RecordsSkipped.Inc()
			return nil
		}
		coords = append(coords, coord)
		return nil
	})
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}

	logging.Ctx(ctx).Debug().
		Str("campana_id", filterValue).
		Int("points", len(coords)).
		Int("skipped", skipped).
		Msg("Fetched coordinates")
	return coords, nil
}

// StripQuotes removes one layer of surrounding double quotes, as sent by
// clients that quote the query value.
func StripQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}
