package api

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"recolookup/app"
	"recolookup/internal/errors"
	"recolookup/internal/logging"
	"recolookup/internal/profiling"
)

// RecommendationHandler serves the JSON API over a RecommendationService
type RecommendationHandler struct {
	service *app.RecommendationService
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(service *app.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{service: service}
}

// TableSummary is one entry of GET /api/tables
type TableSummary struct {
	Name     string         `json:"name"`
	Source   string         `json:"source"`
	Status   app.LoadStatus `json:"status"`
	KeyField string         `json:"key_field"`
	Features string         `json:"features"`
	Rows     int            `json:"rows"`
	Columns  int            `json:"columns"`
	Error    string         `json:"error,omitempty"`
}

// HealthResponse is the body of GET /api/health
type HealthResponse struct {
	Status string            `json:"status"`
	Tables []app.LoadOutcome `json:"tables"`
}

// NewRouter builds the gin engine. Routes carry the full /api prefix so the
// engine can be mounted under /api without path rewriting.
func NewRouter(h *RecommendationHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/lookup", h.Lookup)
		api.GET("/health", h.Health)
		api.GET("/tables", h.ListTables)
		api.GET("/tables/:name", h.GetTable)
	}

	r.NoRoute(func(c *gin.Context) {
		respondError(c, errors.NotFound("route "+c.Request.URL.Path))
	})
	return r
}

// Lookup searches both tables for ?item_id=
func (h *RecommendationHandler) Lookup(c *gin.Context) {
	key, ok := c.GetQuery("item_id")
	if !ok {
		respondError(c, errors.InvalidInput("item_id query parameter is required"))
		return
	}

	result := h.service.Search(c.Request.Context(), key)
	c.JSON(http.StatusOK, result)
}

// Health reports both load outcomes; 503 unless both tables loaded
func (h *RecommendationHandler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Tables: h.service.Status()}
	if !h.service.Ready() {
		resp.Status = "degraded"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListTables summarises both tables
func (h *RecommendationHandler) ListTables(c *gin.Context) {
	outcomes := h.service.Status()
	summaries := make([]TableSummary, 0, len(outcomes))

	for _, o := range outcomes {
		s := TableSummary{
			Name:    o.Table,
			Source:  o.Source,
			Status:  o.Status,
			Rows:    o.Rows,
			Columns: o.Columns,
			Error:   o.Error,
		}
		if b, ok := h.service.Binding(o.Table); ok {
			s.KeyField = b.KeyField
			if b.Selector != nil {
				s.Features = b.Selector.String()
			}
		}
		summaries = append(summaries, s)
	}

	c.JSON(http.StatusOK, gin.H{"tables": summaries})
}

// GetTable returns the column profile of a loaded table
func (h *RecommendationHandler) GetTable(c *gin.Context) {
	name := c.Param("name")

	t, err := h.service.Table(name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profiling.ProfileTable(t))
}

func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)

	status := http.StatusInternalServerError
	switch code {
	case errors.CodeInvalidInput:
		status = http.StatusBadRequest
	case errors.CodeNotFound, errors.CodeUnavailable:
		status = http.StatusNotFound
	}

	if status >= http.StatusInternalServerError {
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.Request.URL.Path).Msg("api request failed")
	}

	msg := err.Error()
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		msg = appErr.Message
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code})
}
