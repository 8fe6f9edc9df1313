package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"StepFuse/internal/calibrate"
	models "StepFuse/internal/domain/models"
	"StepFuse/internal/service/ratelimit"
	"StepFuse/internal/usecase"
	xhttp "StepFuse/pkg/http"
	xlogger "StepFuse/pkg/logger"
)

// per-client budget for control endpoints
const (
	rateCapacity  = 20
	ratePerSecond = 10
)

// EngineEchoHandler exposes the engine control surface over Echo.
type EngineEchoHandler struct {
	logger    *xlogger.Logger
	engine    *usecase.Engine
	collector *usecase.SampleCollector
	bus       *usecase.Bus
	events    *EventLog
	limiter   *ratelimit.Limiter
}

func NewEngineEchoHandler(logger *xlogger.Logger, engine *usecase.Engine, collector *usecase.SampleCollector, bus *usecase.Bus) *EngineEchoHandler {
	return &EngineEchoHandler{
		logger:    logger,
		engine:    engine,
		collector: collector,
		bus:       bus,
		events:    NewEventLog(bus, defaultEventLogSize),
		limiter:   ratelimit.New(),
	}
}

func (h *EngineEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.limiter.Allow(c.RealIP(), rateCapacity, ratePerSecond) {
			return xhttp.DataResponse(c, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		}
		return next(c)
	}
}

func (h *EngineEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api", h.rateLimit)
	g.POST("/engine/start", h.Start)
	g.POST("/engine/stop", h.Stop)
	g.POST("/engine/reset", h.Reset)
	g.PUT("/engine/sensitivity", h.Sensitivity)
	g.POST("/calibration/start", h.StartCalibration)
	g.POST("/calibration/cancel", h.CancelCalibration)
	g.GET("/status", h.Status)
	g.GET("/fusion", h.Fusion)
	g.GET("/battery", h.Battery)
	g.GET("/events", h.Events)
	g.GET("/logs", h.Logs)
}

// StatusResponse is the full diagnostics snapshot.
type StatusResponse struct {
	Running       bool                             `json:"running"`
	Calibrating   bool                             `json:"calibrating"`
	FeedConnected bool                             `json:"feed_connected"`
	WalkingState  string                           `json:"walking_state"`
	SignalQuality float64                          `json:"signal_quality"`
	Fusion        models.FusionStatus              `json:"fusion"`
	Battery       models.BatteryOptimizationStatus `json:"battery"`
	Config        models.DetectionConfig           `json:"config"`
	Profile       *models.UserStepProfile          `json:"profile,omitempty"`
}

func (h *EngineEchoHandler) Start(c echo.Context) error {
	if err := h.engine.Start(c.Request().Context()); err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, map[string]bool{"running": true})
}

func (h *EngineEchoHandler) Stop(c echo.Context) error {
	h.engine.Stop()
	return xhttp.SuccessResponse(c, map[string]bool{"running": false})
}

func (h *EngineEchoHandler) Reset(c echo.Context) error {
	h.engine.ResetCounters()
	return xhttp.SuccessResponse(c, h.engine.FusionStatus(time.Now()))
}

func (h *EngineEchoHandler) Sensitivity(c echo.Context) error {
	req := &models.SensitivityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cfg := h.engine.SetSensitivity(req.Sensitivity)
	return xhttp.SuccessResponse(c, cfg)
}

func (h *EngineEchoHandler) StartCalibration(c echo.Context) error {
	req := &models.CalibrationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	opts := calibrate.Options{
		IdleDuration:    time.Duration(req.IdleSeconds) * time.Second,
		WalkingDuration: time.Duration(req.WalkingSeconds) * time.Second,
	}
	if err := h.engine.StartCalibration(opts); err != nil {
		h.logger.Error("calibration start", xlogger.Error(err))
		return xhttp.BadRequestResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, map[string]bool{"calibrating": true})
}

func (h *EngineEchoHandler) CancelCalibration(c echo.Context) error {
	h.engine.CancelCalibration()
	return xhttp.SuccessResponse(c, map[string]bool{"calibrating": false})
}

func (h *EngineEchoHandler) Status(c echo.Context) error {
	now := time.Now()
	return xhttp.SuccessResponse(c, StatusResponse{
		Running:       h.engine.Running(),
		Calibrating:   h.engine.Calibrating(),
		FeedConnected: h.collector.IsConnected(),
		WalkingState:  h.engine.WalkingState().String(),
		SignalQuality: h.engine.SignalQuality(),
		Fusion:        h.engine.FusionStatus(now),
		Battery:       h.engine.BatteryStatus(now),
		Config:        h.engine.Config(),
		Profile:       h.engine.Profile(),
	})
}

func (h *EngineEchoHandler) Fusion(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.FusionStatus(time.Now()))
}

func (h *EngineEchoHandler) Battery(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.BatteryStatus(time.Now()))
}

// Events streams engine events over SSE until the client disconnects.
func (h *EngineEchoHandler) Events(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(200)
	res.Flush()

	buffer := xhttp.ParseIntDefault(c.QueryParam("buffer"), 64)
	ch, cancel := h.bus.Subscribe(buffer)
	defer cancel()

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-keepalive.C:
			if _, err := fmt.Fprint(res, ": keepalive\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case env, ok := <-ch:
			if !ok {
				return nil
			}
			b, err := json.Marshal(env.Data)
			if err != nil {
				h.logger.Error("sse marshal", xlogger.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", env.Event, b); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func (h *EngineEchoHandler) Logs(c echo.Context) error {
	req := &models.LogsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows := h.events.Recent(req.Limit)
	if since, ok := xhttp.ParseTime(c.QueryParam("since")); ok {
		filtered := rows[:0]
		for _, r := range rows {
			if r.Timestamp.After(since) {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}
