package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"lokalfakta/server/internal/database"
	"lokalfakta/server/internal/enrichment"
	"lokalfakta/server/internal/generation"
	"lokalfakta/server/internal/models"
	"lokalfakta/server/internal/queue"
)

// AIKeyHeader optionally carries a caller-supplied AI API key
const AIKeyHeader = "X-AI-Key"

// maxRefreshIDs caps the listings one refresh request may queue
const maxRefreshIDs = 1000

// Pipeline is the enrichment and generation service
type Pipeline interface {
	FetchAreaData(ctx context.Context, city string, lat, lng float64, address string) models.AreaData
	FetchAreaPriceContext(ctx context.Context, city, category string, listingType models.ListingType) *models.PriceContext
	GenerateListingContent(ctx context.Context, input models.GenerateInput, aiKey string) (*models.GenerateResult, error)
}

// ListingStore is the part of the listing database the handlers read
type ListingStore interface {
	GetListing(ctx context.Context, id int64) (*models.Listing, error)
	ListingIDsNeedingArea(ctx context.Context, staleBefore time.Time, limit int) ([]int64, error)
}

// Enqueuer accepts listing IDs for a background area refresh
type Enqueuer interface {
	PushAll(ids []int64, batchSize int) (int, error)
}

type Handler struct {
	pipeline  Pipeline
	store     ListingStore
	refresh   Enqueuer
	batchSize int
	logger    *logrus.Logger
}

type RefreshRequest struct {
	IDs []int64 `json:"ids"`
}

type ListingResponse struct {
	*models.Listing
	Area *models.AreaData `json:"area"`
}

func NewHandler(pipeline Pipeline, store ListingStore, refresh Enqueuer, batchSize int, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		pipeline:  pipeline,
		store:     store,
		refresh:   refresh,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetAreaData returns the enrichment payload for a city and optional point
func (h *Handler) GetAreaData(c *gin.Context) {
	city := strings.TrimSpace(c.Query("city"))
	if city == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city is required"})
		return
	}

	lat, latErr := parseCoordinate(c.Query("lat"), 90)
	lng, lngErr := parseCoordinate(c.Query("lng"), 180)
	if latErr != nil || lngErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must be valid coordinates"})
		return
	}

	area := h.pipeline.FetchAreaData(c.Request.Context(), city, lat, lng, c.Query("address"))
	c.JSON(http.StatusOK, area)
}

// GenerateListing enriches a listing draft and returns AI-written content
func (h *Handler) GenerateListing(c *gin.Context) {
	var input models.GenerateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.WithError(err).Debug("Invalid generate request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.pipeline.GenerateListingContent(c.Request.Context(), input, c.GetHeader(AIKeyHeader))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case errors.Is(err, enrichment.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, generation.ErrGenerationFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": generation.ErrGenerationFailed.Error()})
	default:
		h.logger.WithError(err).Error("Failed to generate listing")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate listing"})
	}
}

// GetPriceContext summarises comparable stored listings
func (h *Handler) GetPriceContext(c *gin.Context) {
	city := strings.TrimSpace(c.Query("city"))
	category := strings.TrimSpace(c.Query("category"))
	listingType := models.ListingType(c.Query("type"))
	if city == "" || category == "" || !listingType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city, category and a valid type are required"})
		return
	}

	priceContext := h.pipeline.FetchAreaPriceContext(c.Request.Context(), city, category, listingType)
	c.JSON(http.StatusOK, gin.H{"priceContext": priceContext})
}

// GetListing returns a stored listing with its last area snapshot
func (h *Handler) GetListing(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing id"})
		return
	}

	listing, err := h.store.GetListing(c.Request.Context(), id)
	if errors.Is(err, database.ErrListingNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get listing")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get listing"})
		return
	}

	area, err := database.DecodeAreaData(listing)
	if err != nil {
		h.logger.WithError(err).WithField("listing_id", id).Warn("Stored area data is unreadable")
	}
	c.JSON(http.StatusOK, ListingResponse{Listing: listing, Area: area})
}

// RefreshArea queues listings for a background area refresh. Without IDs
// every listing lacking area data is queued.
func (h *Handler) RefreshArea(c *gin.Context) {
	var req RefreshRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}
	if len(req.IDs) > maxRefreshIDs {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Too many listing ids"})
		return
	}

	ids := req.IDs
	if len(ids) == 0 {
		var err error
		ids, err = h.store.ListingIDsNeedingArea(c.Request.Context(), time.Time{}, maxRefreshIDs)
		if err != nil {
			h.logger.WithError(err).Error("Failed to find listings needing area data")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue area refresh"})
			return
		}
	}

	queued, err := h.refresh.PushAll(ids, h.batchSize)
	if errors.Is(err, queue.ErrQueueFull) || errors.Is(err, queue.ErrQueueClosed) {
		h.logger.WithError(err).WithField("queued", queued).Warn("Area refresh only partly queued")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":  "Refresh queue is unavailable",
			"queued": queued,
		})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to queue area refresh")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue area refresh"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "Area refresh queued",
		"queued": queued,
	})
}

// parseCoordinate parses an optional coordinate; empty means 0
func parseCoordinate(raw string, limit float64) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if v < -limit || v > limit {
		return 0, errors.New("coordinate out of range")
	}
	return v, nil
}
