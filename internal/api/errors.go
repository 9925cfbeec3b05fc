package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emariqueo1/clasificador-salcobrand/internal/classify"
	"github.com/emariqueo1/clasificador-salcobrand/internal/storage/sqlite"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// errorKind names the failure for the response body. Everything except
// validation maps to 500.
func errorKind(err error) (int, string) {
	switch classify.StageOf(err) {
	case classify.StageValidation:
		return http.StatusBadRequest, string(classify.StageValidation)
	case classify.StageClassification:
		return http.StatusInternalServerError, string(classify.StageClassification)
	case classify.StagePersistence:
		return http.StatusInternalServerError, string(classify.StagePersistence)
	}
	if errors.Is(err, sqlite.ErrStorage) {
		return http.StatusInternalServerError, string(classify.StagePersistence)
	}
	return http.StatusInternalServerError, ""
}

func respondError(c *gin.Context, err error) {
	status, kind := errorKind(err)
	fields := logFields(c)
	fields["status"] = status
	fields["kind"] = kind
	logger.WithFields(fields).Errorf("request failed: %v", err)
	c.JSON(status, errorResponse{Error: err.Error(), Kind: kind})
}
