package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"

	"github.com/david/bid-monitor/internal/board"
	"github.com/david/bid-monitor/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

const noExportNotice = "No bids to export"

// TemplateRenderer adapts html/template to echo.
type TemplateRenderer struct {
	templates *template.Template
}

func (r *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// NewRenderer parses the page template on top of the results fragment.
func NewRenderer() (*TemplateRenderer, error) {
	t, err := board.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse results templates: %w", err)
	}
	if _, err := t.ParseFS(templatesFS, "templates/*.html"); err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	return &TemplateRenderer{templates: t}, nil
}

// TypeOption is one entry of the type filter select.
type TypeOption struct {
	Value    string
	Label    string
	Selected bool
}

// PageData is the data behind the dashboard page.
type PageData struct {
	View    board.View
	Results board.Results
	Types   []TypeOption
	Notice  string
}

type Server struct {
	Echo       *echo.Echo
	Controller *board.Controller
	Logger     *zap.Logger
}

func NewServer(controller *board.Controller, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{
		Echo:       e,
		Controller: controller,
		Logger:     logger,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.Echo.GET("/", s.handlePage)
	s.Echo.GET("/results", s.handleResults)
	s.Echo.POST("/refresh", s.handleRefresh)
	s.Echo.GET("/export", s.handleExport)
	s.Echo.GET("/health", s.handleHealth)
}

func (s *Server) Start(addr string) error {
	return s.Echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}

// applyFilters reads q and type from the query string or form body into a view for this request.
func (s *Server) applyFilters(c echo.Context) board.View {
	return s.Controller.ApplyFilter(c.FormValue("q"), c.FormValue("type"))
}

func (s *Server) handlePage(c echo.Context) error {
	return s.renderPage(c, s.applyFilters(c), "")
}

func (s *Server) renderPage(c echo.Context, view board.View, notice string) error {
	return c.Render(http.StatusOK, "page", PageData{
		View:    view,
		Results: resultsFor(view),
		Types:   typeOptions(view.Type),
		Notice:  notice,
	})
}

func (s *Server) handleResults(c echo.Context) error {
	view := s.applyFilters(c)

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	if view.LoadFailed {
		return board.RenderError(c.Response())
	}
	return board.Render(c.Response(), view.Bids)
}

func (s *Server) handleRefresh(c echo.Context) error {
	search, typeFilter := c.FormValue("q"), c.FormValue("type")

	err := s.Controller.Refresh(c.Request().Context())
	if errors.Is(err, board.ErrRefreshInProgress) {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	if err != nil {
		s.Logger.Warn("refresh failed", zap.Error(err))
	}
	return c.Redirect(http.StatusSeeOther, pageURL(search, typeFilter))
}

func (s *Server) handleExport(c echo.Context) error {
	view := s.applyFilters(c)

	export, err := s.Controller.Export(view)
	if errors.Is(err, board.ErrNothingToExport) {
		return s.renderPage(c, view, noExportNotice)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename))
	return c.Blob(http.StatusOK, board.CSVContentType, export.Content)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func resultsFor(view board.View) board.Results {
	if view.LoadFailed {
		return board.Results{Failed: true}
	}
	return board.Results{Cards: board.BuildCards(view.Bids)}
}

func typeOptions(selected string) []TypeOption {
	opts := []TypeOption{{Value: board.TypeAll, Label: "All Types", Selected: selected == board.TypeAll}}
	for _, t := range models.KnownTypes {
		opts = append(opts, TypeOption{Value: t, Label: t, Selected: selected == t})
	}
	return opts
}

func pageURL(search, typeFilter string) string {
	q := url.Values{}
	if search != "" {
		q.Set("q", search)
	}
	if typeFilter != "" && typeFilter != board.TypeAll {
		q.Set("type", typeFilter)
	}
	if len(q) == 0 {
		return "/"
	}
	return "/?" + q.Encode()
}
