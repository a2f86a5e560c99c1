package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/faultdesk/incident-service-api/internal/ierr"
	"github.com/faultdesk/incident-service-api/internal/resolve"
)

func newDispatchRouter(t *testing.T, sanitize bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	statusMap := resolve.NewStatusMap().
		Map(ierr.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "The requested resource was not found.").
		Map(ierr.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR", "")

	chain := resolve.NewChain(zap.NewNop(), resolve.NewRegistry(), statusMap, resolve.NewFramework())
	fallback := resolve.NewFallbackRenderer(sanitize)
	metrics := resolve.NewMetrics(prometheus.NewRegistry())

	router := gin.New()
	router.Use(Dispatch(chain, fallback, metrics, zap.NewNop()))
	return router
}

func TestDispatch_ResolvedFailure(t *testing.T) {
	router := newDispatchRouter(t, true)
	router.GET("/missing", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("incident lookup: %w", ierr.ErrNotFound))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.Code != "NOT_FOUND" {
		t.Fatalf("unexpected code: %s", body.Code)
	}
}

func TestDispatch_UnresolvedFailureGetsFallback(t *testing.T) {
	router := newDispatchRouter(t, true)
	router.GET("/broken", func(c *gin.Context) {
		_ = c.Error(errors.New("pq: relation incidents does not exist"))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/broken", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}

	var body resolve.ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected status field: %d", body.Status)
	}
	if body.Path != "/broken" {
		t.Fatalf("unexpected path field: %s", body.Path)
	}
	if strings.Contains(body.Message, "relation incidents") {
		t.Fatalf("sanitized fallback leaked internal failure text: %q", body.Message)
	}
	if body.Timestamp.IsZero() {
		t.Fatal("fallback body must carry a timestamp")
	}
}

func TestDispatch_PanicRecovered(t *testing.T) {
	router := newDispatchRouter(t, true)
	router.GET("/panic", func(c *gin.Context) {
		panic("handler defect")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", w.Code)
	}

	var body resolve.ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if strings.Contains(body.Message, "handler defect") {
		t.Fatalf("panic text leaked to caller: %q", body.Message)
	}
}

func TestDispatch_SuccessfulRequestUntouched(t *testing.T) {
	router := newDispatchRouter(t, true)
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestDispatch_WrittenResponseNotOverwritten(t *testing.T) {
	router := newDispatchRouter(t, true)
	router.GET("/written", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"id": "abc"})
		_ = c.Error(ierr.ErrNotFound)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/written", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected handler response preserved, got %d", w.Code)
	}
}
