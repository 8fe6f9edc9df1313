package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"StepFuse/internal/handler/api"
	"StepFuse/internal/middleware"
	internalrepo "StepFuse/internal/repository"
	"StepFuse/internal/service/imufeed"
	"StepFuse/internal/usecase"
	"StepFuse/pkg/cache"
	applogger "StepFuse/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordSample(string)           {}
func (nopMetrics) RecordStep(string)             {}
func (nopMetrics) RecordFusionMode(string)       {}
func (nopMetrics) RecordBatteryMode(string)      {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*echo.Echo, *usecase.Engine) {
	t.Helper()
	log, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stdout"})
	require.NoError(t, err)

	store := internalrepo.NewCacheProfileStore(cache.NewMemoryCache())
	bus := usecase.NewBus()
	engine := usecase.NewEngine(log, nopMetrics{}, store, nil, bus)

	pipe := middleware.NewSamplePipeline(engine, nopMetrics{})
	collector := usecase.NewSampleCollector(imufeed.NewMock(50, 2.0, 1.2, 0.05), nopMetrics{}, pipe)

	e := echo.New()
	h := api.NewEngineEchoHandler(log, engine, collector, bus)
	h.RegisterRoutes(e)
	return e, engine
}

func do(e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestStatusEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	rec, env := do(e, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, http.StatusOK, env.Status)

	var st api.StatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &st))
	require.False(t, st.Running)
	require.False(t, st.FeedConnected)
	require.Equal(t, "idle", st.WalkingState)
}

func TestEngineStartStopEndpoints(t *testing.T) {
	e, engine := newTestServer(t)

	_, env := do(e, http.MethodPost, "/api/engine/start", "")
	require.Equal(t, http.StatusOK, env.Status)
	require.True(t, engine.Running())

	// starting twice is a client error
	_, env = do(e, http.MethodPost, "/api/engine/start", "")
	require.Equal(t, http.StatusBadRequest, env.Status)

	_, env = do(e, http.MethodPost, "/api/engine/stop", "")
	require.Equal(t, http.StatusOK, env.Status)
	require.False(t, engine.Running())
}

func TestSensitivityEndpoint(t *testing.T) {
	e, engine := newTestServer(t)

	_, env := do(e, http.MethodPut, "/api/engine/sensitivity", `{"sensitivity":0.8}`)
	require.Equal(t, http.StatusOK, env.Status)
	require.Equal(t, 0.8, engine.Config().Sensitivity)

	// out-of-range values fail request validation
	_, env = do(e, http.MethodPut, "/api/engine/sensitivity", `{"sensitivity":3}`)
	require.Equal(t, http.StatusBadRequest, env.Status)
	require.Equal(t, 0.8, engine.Config().Sensitivity)
}

func TestCalibrationEndpointRequiresRunningEngine(t *testing.T) {
	e, _ := newTestServer(t)

	_, env := do(e, http.MethodPost, "/api/calibration/start", `{}`)
	require.Equal(t, http.StatusBadRequest, env.Status)
}

func TestControlEndpointsAreRateLimited(t *testing.T) {
	e, _ := newTestServer(t)

	limited := false
	for i := 0; i < 40; i++ {
		_, env := do(e, http.MethodGet, "/api/battery", "")
		if env.Status == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	require.True(t, limited, "burst of 40 requests never hit the limiter")
}
