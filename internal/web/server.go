// Package web is the HTTP surface: the fetch form, the fetch endpoint and
// the fetch-history view.
package web

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"invoicefetch/internal/config"
	"invoicefetch/internal/ledger"
	"invoicefetch/internal/pipeline"
)

//go:embed templates/*.html
var templateFS embed.FS

// Guard is the duplicate-range ledger the handlers consult and append to.
type Guard interface {
	Overlaps(folder string, since, before time.Time) (bool, error)
	Record(folder string, from, to time.Time) error
	Entries() ([]ledger.Entry, error)
}

// Runner runs one fetch cycle.
type Runner interface {
	Run(ctx context.Context, req pipeline.FetchRequest) (*pipeline.Report, error)
}

// Server holds the gin engine and the handlers' dependencies.
type Server struct {
	engine    *gin.Engine
	runner    Runner
	guard     Guard
	mappings  []config.KeywordFolder
	templates *template.Template
	logger    *slog.Logger
	now       func() time.Time
}

// NewServer creates the Server and registers all routes.
func NewServer(runner Runner, guard Guard, mappings []config.KeywordFolder, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		runner:    runner,
		guard:     guard,
		mappings:  mappings,
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
		logger:    logger.With("component", "web"),
		now:       time.Now,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	engine.HandleMethodNotAllowed = true
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Invalid request method"})
	})
	engine.SetHTMLTemplate(s.templates)

	engine.GET("/", s.index)
	engine.POST("/api/fetch", s.fetchPDFs)
	engine.GET("/api/logs", s.fetchLogs)

	s.engine = engine
	return s
}

// Handler exposes the engine for net/http and for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
