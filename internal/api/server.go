package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-notecard/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-notecard/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-notecard/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-notecard/internal/notecard"
	"github.com/nerrad567/gray-logic-notecard/internal/reading"
	"github.com/nerrad567/gray-logic-notecard/internal/upload"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Queue is the reading buffer handlers append to.
type Queue interface {
	EnqueueAll(rs []reading.Reading)
	Len() int
}

// Scheduler is the upload schedule the operational endpoints expose.
type Scheduler interface {
	Status() upload.Status
	FlushNow()
}

// CoordinatorStats reports flush counters.
type CoordinatorStats interface {
	Stats() upload.CoordinatorStats
}

// OpenerStats reports Notecard session counters.
type OpenerStats interface {
	Stats() notecard.Stats
}

// CycleLister reads the flush journal.
type CycleLister interface {
	Recent(ctx context.Context, limit int) ([]database.CycleRecord, error)
}

// HealthChecker is an optional component probed by GET /api/v1/health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// PoolStats reports database connection pool statistics.
type PoolStats interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config config.APIConfig
	Logger *logging.Logger
	Queue  Queue

	// Optional.
	Scheduler   Scheduler
	Coordinator CoordinatorStats
	Opener      OpenerStats
	Journal     CycleLister
	Pool        PoolStats
	Checks      map[string]HealthChecker
	Version     string
}

// Server is the relay's HTTP server.
type Server struct {
	cfg         config.APIConfig
	logger      *logging.Logger
	queue       Queue
	scheduler   Scheduler
	coordinator CoordinatorStats
	opener      OpenerStats
	journal     CycleLister
	pool        PoolStats
	checks      map[string]HealthChecker
	version     string
	startTime   time.Time

	server   *http.Server
	listener net.Listener

	requests atomic.Uint64
	accepted atomic.Uint64
	rejected atomic.Uint64
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Logger and Queue are required; everything else is optional
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Queue == nil {
		return nil, fmt.Errorf("reading queue is required")
	}
	if deps.Config.IngestPath == "" {
		deps.Config.IngestPath = "/minimon"
	}
	if deps.Config.MaxBodyBytes <= 0 {
		deps.Config.MaxBodyBytes = defaultMaxBodyBytes
	}

	return &Server{
		cfg:         deps.Config,
		logger:      deps.Logger,
		queue:       deps.Queue,
		scheduler:   deps.Scheduler,
		coordinator: deps.Coordinator,
		opener:      deps.Opener,
		journal:     deps.Journal,
		pool:        deps.Pool,
		checks:      deps.Checks,
		version:     deps.Version,
		startTime:   time.Now(),
	}, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in a background goroutine. Binding
// errors (port in use) are returned; the server is stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	s.logger.Info("API server listening", "address", ln.Addr().String(), "ingest_path", s.cfg.IngestPath)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
