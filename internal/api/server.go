package api

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/david/bid-monitor/internal/models"
	"github.com/david/bid-monitor/internal/monitor"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

const maxScanDuration = 30 * time.Minute

type Server struct {
	Echo     *echo.Echo
	Monitor  *monitor.Monitor
	Logger   *zap.Logger
	Interval time.Duration

	// Background scan tracking
	jobMu      sync.Mutex
	runningJob *backgroundJob
}

type backgroundJob struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"` // running, completed, failed
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at,omitempty"`
	Result    *monitor.RunResult `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
}

type templateRenderer struct {
	templates *template.Template
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

func NewServer(m *monitor.Monitor, logger *zap.Logger, allowedOrigins []string, interval time.Duration) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = &templateRenderer{
		templates: template.Must(template.ParseFS(templatesFS, "templates/*.html")),
	}
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s := &Server{
		Echo:     e,
		Monitor:  m,
		Logger:   logger,
		Interval: interval,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/", s.handleStatusPage)
	s.Echo.GET("/health", s.handleHealth)

	api := s.Echo.Group("/api")
	api.GET("/health", s.handleAPIHealth)
	api.GET("/bids", s.handleListBids)
	api.GET("/statistics", s.handleStatistics)
	api.GET("/refresh", s.handleRefresh)
	api.POST("/refresh", s.handleRefresh)
	api.POST("/scans", s.handleStartScan)
	api.GET("/scans/:id", s.handleScanStatus)
}

func (s *Server) Start(addr string) error {
	return s.Echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleAPIHealth(c echo.Context) error {
	bids, last := s.Monitor.Snapshot()
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:        "ok",
		Message:       "Bid Monitor API is running",
		BidsCount:     len(bids),
		LastUpdate:    models.NewTimestamp(last),
		MonitorActive: s.Monitor.Active(),
	})
}

func (s *Server) handleListBids(c echo.Context) error {
	bids, last := s.Monitor.Snapshot()
	return c.JSON(http.StatusOK, models.BidsResponse{
		Success:    true,
		Bids:       bids,
		Count:      len(bids),
		LastUpdate: models.NewTimestamp(last),
	})
}

func (s *Server) handleStatistics(c echo.Context) error {
	_, last := s.Monitor.Snapshot()
	return c.JSON(http.StatusOK, models.StatisticsResponse{
		Success:    true,
		Statistics: s.Monitor.Stats(),
		LastUpdate: models.NewTimestamp(last),
	})
}

// handleRefresh runs a scan synchronously and reports the new collection size.
func (s *Server) handleRefresh(c echo.Context) error {
	result, err := s.Monitor.Run(c.Request().Context())
	if err != nil {
		s.Logger.Error("refresh failed", zap.Error(err))
		resp := models.RefreshResponse{Success: false, Message: err.Error()}
		if result != nil {
			resp.RunID = result.RunID
		}
		return c.JSON(http.StatusInternalServerError, resp)
	}

	bids, last := s.Monitor.Snapshot()
	return c.JSON(http.StatusOK, models.RefreshResponse{
		Success:    true,
		Message:    fmt.Sprintf("Found %d bids", len(bids)),
		BidsCount:  len(bids),
		LastUpdate: models.NewTimestamp(last),
		RunID:      result.RunID,
	})
}

// handleStartScan starts a scan in the background and returns 202 immediately.
func (s *Server) handleStartScan(c echo.Context) error {
	s.jobMu.Lock()
	if s.runningJob != nil && s.runningJob.Status == "running" {
		job := s.runningJob
		s.jobMu.Unlock()
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":  "A scan is already running",
			"job_id": job.ID,
		})
	}

	// detached from the request, bounded by our own timeout
	jobCtx, jobCancel := context.WithTimeout(
		context.WithoutCancel(c.Request().Context()), maxScanDuration,
	)

	job := &backgroundJob{
		ID:        uuid.New().String()[:8],
		Status:    "running",
		StartedAt: time.Now(),
	}
	s.runningJob = job
	s.jobMu.Unlock()

	go func() {
		defer jobCancel()
		result, err := s.Monitor.Run(jobCtx)

		s.jobMu.Lock()
		defer s.jobMu.Unlock()
		job.EndedAt = time.Now()
		job.Result = result
		if err != nil {
			job.Status = "failed"
			job.Error = err.Error()
			s.Logger.Error("background scan failed", zap.String("job_id", job.ID), zap.Error(err))
			return
		}
		job.Status = "completed"
		s.Logger.Info("background scan completed", zap.String("job_id", job.ID), zap.Int("found", result.Found))
	}()

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message": "Scan started",
		"job_id":  job.ID,
		"poll":    fmt.Sprintf("/api/scans/%s", job.ID),
	})
}

func (s *Server) handleScanStatus(c echo.Context) error {
	queried := c.Param("id")

	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	job := s.runningJob
	if job == nil || job.ID != queried {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	resp := map[string]interface{}{
		"id":         job.ID,
		"status":     job.Status,
		"started_at": job.StartedAt,
	}
	if !job.EndedAt.IsZero() {
		resp["ended_at"] = job.EndedAt
		resp["duration"] = job.EndedAt.Sub(job.StartedAt).String()
	}
	if job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	return c.JSON(http.StatusOK, resp)
}

type statusPage struct {
	Active     bool
	Tracking   string
	Count      int
	LastUpdate string
	LastRun    *monitor.RunResult
	Sources    []monitor.SourceConfig
	Interval   string
}

func (s *Server) handleStatusPage(c echo.Context) error {
	bids, last := s.Monitor.Snapshot()

	lastUpdate := "Updating..."
	if last != nil {
		lastUpdate = last.Format(time.RFC1123)
	}

	return c.Render(http.StatusOK, "status", statusPage{
		Active:     s.Monitor.Active(),
		Tracking:   trackingSummary(s.Monitor.Keywords()),
		Count:      len(bids),
		LastUpdate: lastUpdate,
		LastRun:    s.Monitor.LastRun(),
		Sources:    s.Monitor.ActiveSources(),
		Interval:   s.Interval.String(),
	})
}

// trackingSummary lists the first few keywords for the status page.
func trackingSummary(keywords []string) string {
	const shown = 4
	if len(keywords) <= shown {
		return strings.Join(keywords, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(keywords[:shown], ", "), len(keywords)-shown)
}
