package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/emariqueo1/clasificador-salcobrand/internal/classify"
	"github.com/emariqueo1/clasificador-salcobrand/internal/domain"
)

type ClassifyService interface {
	Classify(ctx context.Context, req classify.Request) (classify.Response, error)
}

type Store interface {
	ListAll(ctx context.Context, limit int) ([]domain.ClassificationRecord, error)
	Clear(ctx context.Context) error
	CountByCategory(ctx context.Context, since time.Time) ([]domain.CategoryCount, error)
}

type Server struct {
	svc   ClassifyService
	store Store
}

func NewServer(svc ClassifyService, store Store) *Server {
	return &Server{svc: svc, store: store}
}

// Router builds the gin engine with all API routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger())

	api := router.Group("/api")
	{
		api.POST("/classify", s.Classify)
		api.GET("/products", s.ListProducts)
		api.DELETE("/clear", s.Clear)
		api.GET("/stats", s.Stats)
	}
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

// Handler wraps Router with CORS. No origins means any origin is allowed.
func (s *Server) Handler(corsOrigins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	}).Handler(s.Router())
}

func validationErr(err error) error {
	return &classify.Error{Stage: classify.StageValidation, Err: err}
}

// Classify handles POST /api/classify.
func (s *Server) Classify(c *gin.Context) {
	var req classify.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			respondError(c, validationErr(classify.ErrProductRequired))
			return
		}
		respondError(c, validationErr(fmt.Errorf("invalid request body: %w", err)))
		return
	}

	resp, err := s.svc.Classify(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListProducts handles GET /api/products. limit is optional and capped by the store.
func (s *Server) ListProducts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, validationErr(fmt.Errorf("invalid limit '%s'", raw)))
			return
		}
		limit = parsed
	}

	records, err := s.store.ListAll(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// Clear handles DELETE /api/clear.
func (s *Server) Clear(c *gin.Context) {
	if err := s.store.Clear(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	logger.WithFields(logFields(c)).Warn("all classifications cleared")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Stats handles GET /api/stats with an optional RFC 3339 `since`.
func (s *Server) Stats(c *gin.Context) {
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, validationErr(fmt.Errorf("invalid since '%s': %w", raw, err)))
			return
		}
		since = parsed
	}

	counts, err := s.store.CountByCategory(c.Request.Context(), since)
	if err != nil {
		respondError(c, err)
		return
	}
	total := 0
	for _, cnt := range counts {
		total += cnt.Count
	}
	if counts == nil {
		counts = []domain.CategoryCount{}
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "categories": counts})
}
