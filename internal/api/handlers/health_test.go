package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eshaffer321/openvera/internal/api/dto"
	"github.com/eshaffer321/openvera/internal/api/handlers"
	"github.com/eshaffer321/openvera/internal/infrastructure/storage"
)

func TestHealthHandler_ServeHTTP(t *testing.T) {
	t.Run("returns 200 OK with health status", func(t *testing.T) {
		handler := handlers.NewHealthHandler(storage.NewMockRepository())

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.HealthResponse
		decode(t, rec, &response)
		assert.Equal(t, "ok", response.Status)
		assert.Equal(t, "ok", response.Database)
		assert.NotEmpty(t, response.Timestamp)
	})

	t.Run("returns 503 when the database is unreachable", func(t *testing.T) {
		repo := storage.NewMockRepository()
		repo.PingErr = errors.New("database is locked")
		handler := handlers.NewHealthHandler(repo)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var response dto.HealthResponse
		decode(t, rec, &response)
		assert.Equal(t, "degraded", response.Status)
	})
}
