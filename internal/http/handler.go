package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go.ccmp.io/winds-api/internal/metrics"
	"go.ccmp.io/winds-api/internal/usecase"
)

// Handler handles HTTP requests for wind analysis.
type Handler struct {
	pointUC   *usecase.PointUseCase
	compareUC *usecase.CompareUseCase
	maskUC    *usecase.MaskUseCase
	collector *metrics.Collector
}

// NewHandler creates a new HTTP handler.
func NewHandler(pointUC *usecase.PointUseCase, compareUC *usecase.CompareUseCase, maskUC *usecase.MaskUseCase, collector *metrics.Collector) *Handler {
	return &Handler{
		pointUC:   pointUC,
		compareUC: compareUC,
		maskUC:    maskUC,
		collector: collector,
	}
}

// GetWinds handles GET /v1/winds/speed.
func (h *Handler) GetWinds(c *gin.Context) {
	req, ok := parsePointRequest(c)
	if !ok {
		return
	}

	defer h.collector.ObserveAnalysis("point", time.Now())
	response, err := h.pointUC.Winds(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetClimatology handles GET /v1/winds/climatology.
func (h *Handler) GetClimatology(c *gin.Context) {
	req, ok := parsePointRequest(c)
	if !ok {
		return
	}

	defer h.collector.ObserveAnalysis("climatology", time.Now())
	response, err := h.pointUC.Climatology(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetCompare handles GET /v1/winds/compare.
func (h *Handler) GetCompare(c *gin.Context) {
	req := usecase.CompareRequest{
		BuoyID: c.Query("buoy_id"),
		Method: c.Query("method"),
	}

	if s := c.Query("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid start time (expected RFC3339): %v", err)})
			return
		}
		req.Start = t.UTC()
	}
	if s := c.Query("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid end time (expected RFC3339): %v", err)})
			return
		}
		req.End = t.UTC()
	}
	if s := c.Query("window"); s != "" {
		w, err := strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid window: %v", err)})
			return
		}
		req.SmoothingWindow = w
	}
	if s := c.Query("anomalies"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid anomalies flag: %v", err)})
			return
		}
		req.Anomalies = v
	}

	defer h.collector.ObserveAnalysis("compare", time.Now())
	response, err := h.compareUC.Execute(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetMask handles GET /v1/winds/masks.
func (h *Handler) GetMask(c *gin.Context) {
	req := usecase.MaskRequest{
		Policy: c.Query("policy"),
	}

	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}
	req.Start, req.End = start, end

	defer h.collector.ObserveAnalysis("mask", time.Now())
	response, err := h.maskUC.Execute(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetHistogram handles GET /v1/winds/histogram.
func (h *Handler) GetHistogram(c *gin.Context) {
	req := usecase.HistogramRequest{
		MaskPolicy: c.Query("mask_policy"),
	}

	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}
	req.Start, req.End = start, end

	// Bins default to a calm/windy split at 2 m/s.
	binsStr := c.Query("bins")
	if binsStr == "" {
		binsStr = "0,2,1000"
	}
	for _, f := range strings.Split(binsStr, ",") {
		edge, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid bin edge %q: %v", f, err)})
			return
		}
		req.Bins = append(req.Bins, edge)
	}

	defer h.collector.ObserveAnalysis("histogram", time.Now())
	response, err := h.maskUC.Histogram(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetBuoys handles GET /v1/buoys.
func (h *Handler) GetBuoys(c *gin.Context) {
	response, err := h.compareUC.ListBuoys()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, response)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// parsePointRequest parses lat/lon/start/end query parameters.
func parsePointRequest(c *gin.Context) (usecase.PointRequest, bool) {
	var req usecase.PointRequest

	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid latitude: %v", err)})
		return req, false
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid longitude: %v", err)})
		return req, false
	}
	req.Lat, req.Lon = lat, lon

	start, end, ok := parseTimeRange(c)
	if !ok {
		return req, false
	}
	req.Start, req.End = start, end
	return req, true
}

// parseTimeRange parses required start/end query parameters.
func parseTimeRange(c *gin.Context) (start, end time.Time, ok bool) {
	startStr := c.Query("start")
	endStr := c.Query("end")
	if startStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start parameter is required"})
		return
	}
	if endStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end parameter is required"})
		return
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid start time (expected RFC3339): %v", err)})
		return
	}
	end, err = time.Parse(time.RFC3339, endStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid end time (expected RFC3339): %v", err)})
		return
	}
	return start.UTC(), end.UTC(), true
}
