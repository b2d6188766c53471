package services

import (
	"context"
	"strings"

	"kmz-server/logging"
	"kmz-server/metrics"
	"kmz-server/models"
	"kmz-server/utils/errors"
)

type KMZService struct {
	coordinates *CoordinateService
	archives    *ArchiveService
}

func NewKMZService(coordinates *CoordinateService, archives *ArchiveService) *KMZService {
	return &KMZService{coordinates: coordinates, archives: archives}
}

// Generate fetches the campaign's coordinates and writes them to a new KMZ.
// A campaign without usable records yields NotFound and writes nothing.
func (s *KMZService) Generate(ctx context.Context, campaignID string) (models.GeneratedArchive, error) {
	archive, err := s.generate(ctx, campaignID)
	if err != nil {
		metrics.RecordGenerationError(errors.Internal(err).Code)
	}
	return archive, err
}

func (s *KMZService) generate(ctx context.Context, campaignID string) (models.GeneratedArchive, error) {
	if strings.TrimSpace(StripQuotes(campaignID)) == "" {
		return models.GeneratedArchive{}, errors.BadRequest("campana_id is required")
	}

	coords, err := s.coordinates.FetchCoordinates(ctx, campaignID)
	if err != nil {
		return models.GeneratedArchive{}, err
	}
	if len(coords) == 0 {
		return models.GeneratedArchive{}, errors.NotFound(campaignID)
	}

	filename, err := s.archives.ReserveFilename(SafeSlug(campaignID))
	if err != nil {
		return models.GeneratedArchive{}, err
	}
	path, err := s.archives.Package(RenderKML(coords), filename)
	if err != nil {
		s.archives.Release(filename)
		return models.GeneratedArchive{}, err
	}

	metrics.RecordArchive(len(coords))
	logging.Ctx(ctx).Info().
		Str("campana_id", campaignID).
		Str("file", filename).
		Int("points", len(coords)).
		Msg("KMZ archive written")

	return models.GeneratedArchive{
		CampaignID: StripQuotes(campaignID),
		Filename:   filename,
		Path:       path,
		Points:     len(coords),
	}, nil
}
