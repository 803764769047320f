package rest

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/parth-2005/os-project/internal/master"
)

// Config holds the configuration for the coordinator HTTP server.
type Config struct {
	// Address is the address to listen on (e.g., ":5000").
	Address string `yaml:"address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// BodyLimit caps the size of a submission body, in bytes.
	BodyLimit int `yaml:"body_limit"`

	// EagerSweep probes all workers before each partitioning pass,
	// discarding the ones that fail, in addition to the lazy marking the
	// dispatcher always performs.
	EagerSweep bool `yaml:"eager_sweep"`
}

// DefaultConfig returns a default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:      ":5000",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		BodyLimit:    64 * 1024 * 1024,
		EagerSweep:   true,
	}
}

// Server is the coordinator-facing HTTP server: worker registration, task
// submission, and liveness endpoints.
type Server struct {
	app        *fiber.App
	registry   master.WorkerRegistry
	dispatcher *master.Dispatcher
	prober     master.LivenessProber
	config     *Config
}

// NewServer creates the coordinator HTTP server.
func NewServer(registry master.WorkerRegistry, dispatcher *master.Dispatcher, prober master.LivenessProber, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	app := fiber.New(fiber.Config{
		AppName:      "File Processing Master",
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		BodyLimit:    config.BodyLimit,
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: errorHandler,
	})

	s := &Server{
		app:        app,
		registry:   registry,
		dispatcher: dispatcher,
		prober:     prober,
		config:     config,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.app.Use(fiberrecover.New(fiberrecover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
}

func (s *Server) setupRoutes() {
	s.app.Get("/", s.home)
	s.app.Get("/check_status", s.checkStatus)
	s.app.Post("/register", s.registerWorker)
	s.app.Post("/assign_task", s.assignTask)
	s.app.Get("/workers", s.listWorkers)
}

// Start starts the server.
func (s *Server) Start() error {
	return s.app.Listen(s.config.Address)
}

// StartWithContext starts the server and shuts it down when the context is
// cancelled.
func (s *Server) StartWithContext(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- s.app.Listen(s.config.Address)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "request_failed",
		Message: message,
	})
}
