package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Caolboy/LABERS-HOST/internal/apperrors"
	"github.com/Caolboy/LABERS-HOST/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestRouter(bookings *MockBookingUseCase, tokens *MockAuthUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), Handlers{
		Auth:    NewAuthHandler(tokens, &MockRegistrationUseCase{}),
		Catalog: NewCatalogHandler(&MockCatalogUseCase{}),
		Booking: NewBookingHandler(bookings),
		Tokens:  tokens,
	})
}

func TestRouter_RequiresBearerToken(t *testing.T) {
	bookings := &MockBookingUseCase{}
	tokens := &MockAuthUseCase{}
	router := newTestRouter(bookings, tokens)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperrors.CodeUnauthorized, decodeEnvelope(t, w).Error.Code)
	bookings.AssertNotCalled(t, "Dashboard", mock.Anything, mock.Anything)
}

func TestRouter_RejectsInvalidToken(t *testing.T) {
	tokens := &MockAuthUseCase{}
	router := newTestRouter(&MockBookingUseCase{}, tokens)
	tokens.On("ParseToken", "expired").Return(int64(0), apperrors.Unauthorized("Unauthenticated."))

	req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
	req.Header.Set("Authorization", "Bearer expired")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_AuthenticatedRequest(t *testing.T) {
	bookings := &MockBookingUseCase{}
	tokens := &MockAuthUseCase{}
	router := newTestRouter(bookings, tokens)
	tokens.On("ParseToken", "good").Return(int64(12), nil)
	bookings.On("Dashboard", mock.Anything, int64(12)).Return(&domain.Dashboard{UserName: "Ada"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set(headerRequestID, "req-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(headerRequestID))
	bookings.AssertExpectations(t)
}

func TestRouter_ServesOpenAPIAndUnknownRoutes(t *testing.T) {
	router := newTestRouter(&MockBookingUseCase{}, &MockAuthUseCase{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"/api/bookings"`)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, decodeEnvelope(t, w).Success)
}
