// Package httpapi exposes the task lifecycle over a JSON and multipart HTTP
// API built on gin. Handlers only translate requests and errors; the rules
// live in the services package.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophtasks/internal/logging"
	"github.com/dmitrijs2005/gophtasks/internal/server/models"
	"github.com/dmitrijs2005/gophtasks/internal/server/services"
	"github.com/gin-gonic/gin"
)

// TaskService is the lifecycle API the handlers call.
type TaskService interface {
	Create(ctx context.Context, in services.TaskInput) (*models.Task, error)
	Update(ctx context.Context, id string, in services.TaskInput) (*models.Task, error)
	Delete(ctx context.Context, id string) error
	ToggleStatus(ctx context.Context, id string) (*models.Task, error)
	Get(ctx context.Context, id string) (*models.Task, error)
	DownloadAttachment(ctx context.Context, id string) (*services.Attachment, error)
	List(ctx context.Context, q services.ListQuery) ([]*models.Task, error)
	Stats(ctx context.Context) (*services.Stats, error)
	MaxAttachmentSize() int64
	Now() time.Time
}

// Pinger checks backing storage for the readiness endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options configures the HTTP server.
type Options struct {
	Address string
	// SecretKey enables the bearer-token guard on /api/tasks when non-empty.
	SecretKey       string
	ShutdownTimeout time.Duration
}

// Server provides HTTP handlers for the task API.
type Server struct {
	engine  *gin.Engine
	tasks   TaskService
	db      Pinger
	logger  logging.Logger
	opts    Options
}

// New constructs the HTTP server with routes and middleware configured.
func New(tasks TaskService, db Pinger, logger logging.Logger, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv := &Server{
		engine:  router,
		tasks:   tasks,
		db:      db,
		logger:  logger.With("module", "http_server"),
		opts:    opts,
	}
	router.Use(srv.requestLogger())

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		tasks := api.Group("/tasks", s.bearerAuth())
		{
			tasks.GET("", s.handleListTasks)
			tasks.POST("", s.limitBody(), s.handleCreateTask)
			tasks.GET("/:id", s.handleGetTask)
			tasks.PUT("/:id", s.limitBody(), s.handleUpdateTask)
			tasks.DELETE("/:id", s.handleDeleteTask)
			tasks.POST("/:id/toggle-status", s.handleToggleStatus)
			tasks.GET("/:id/attachment", s.handleDownloadAttachment)
		}
	}
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.opts.Address)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
