package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kmz-server/logging"
	"kmz-server/middleware"
	"kmz-server/models"
	"kmz-server/services"
	"kmz-server/utils/errors"
)

const campaignParam = "campana_id"

type kmzGenerator interface {
	Generate(ctx context.Context, campaignID string) (models.GeneratedArchive, error)
}

type downloadRegistry interface {
	Record(ctx context.Context, rec models.DownloadRecord) error
	Recent(ctx context.Context, campaignID string, limit int) ([]models.DownloadRecord, error)
}

type KMZHandler struct {
	generator     kmzGenerator
	registry      downloadRegistry
	publicBaseURL string
}

type DownloadHistoryResponse struct {
	CampaignID string                  `json:"campana_id"`
	Count      int                     `json:"count"`
	Downloads  []models.DownloadRecord `json:"downloads"`
}

// NewKMZHandler builds the handler. registry may be nil, in which case no
// download history is kept.
func NewKMZHandler(generator kmzGenerator, registry downloadRegistry, publicBaseURL string) *KMZHandler {
	return &KMZHandler{
		generator:     generator,
		registry:      registry,
		publicBaseURL: publicBaseURL,
	}
}

// GetKMZ handles GET /kmz?campana_id=...
func (h *KMZHandler) GetKMZ(w http.ResponseWriter, r *http.Request) {
	campaignID := r.URL.Query().Get(campaignParam)
	if strings.TrimSpace(services.StripQuotes(campaignID)) == "" {
		middleware.WriteError(w, r, errors.BadRequest("campana_id query parameter is required"))
		return
	}

	// A client disconnect must not abort the store query or the archive write.
	ctx := context.WithoutCancel(r.Context())

	archive, err := h.generator.Generate(ctx, campaignID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	downloadURL := DownloadURL(PublicBaseURL(r, h.publicBaseURL), archive.Filename)
	h.record(ctx, archive, downloadURL)

	middleware.WriteJSON(w, http.StatusOK, models.DownloadDescriptor{DownloadURL: downloadURL})
}

// GetHistory handles GET /kmz/history?campana_id=...&limit=N
func (h *KMZHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	campaignID := services.StripQuotes(r.URL.Query().Get(campaignParam))
	if strings.TrimSpace(campaignID) == "" {
		middleware.WriteError(w, r, errors.BadRequest("campana_id query parameter is required"))
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			middleware.WriteError(w, r, errors.BadRequest("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	records, err := h.registry.Recent(r.Context(), campaignID, limit)
	if err != nil {
		middleware.WriteError(w, r, errors.StoreUnavailable(err))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, DownloadHistoryResponse{
		CampaignID: campaignID,
		Count:      len(records),
		Downloads:  records,
	})
}

func (h *KMZHandler) record(ctx context.Context, archive models.GeneratedArchive, downloadURL string) {
	if h.registry == nil {
		return
	}
	err := h.registry.Record(ctx, models.DownloadRecord{
		CampaignID: archive.CampaignID,
		Filename:   archive.Filename,
		URL:        downloadURL,
		Points:     archive.Points,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("file", archive.Filename).Msg("Failed to record download")
	}
}
