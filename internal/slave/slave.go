package slave

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/parth-2005/os-project/pkg/logger"
	"github.com/parth-2005/os-project/pkg/types"
)

// Config holds worker node configuration.
type Config struct {
	// MasterURL is the coordinator's base URL.
	MasterURL string

	// AdvertiseHost is the host the worker registers under. Empty means
	// the master-visible hostname must be supplied by deployment config.
	AdvertiseHost string

	// Port is the port the worker listens on and registers under.
	Port int

	// ReregisterInterval re-announces the worker periodically; registration
	// is idempotent on the master, and re-registering is the only way back
	// in after an eviction.
	ReregisterInterval time.Duration

	// RegisterTimeout bounds a single registration call.
	RegisterTimeout time.Duration
}

// DefaultConfig returns default worker node settings.
func DefaultConfig() *Config {
	return &Config{
		MasterURL:          "http://localhost:5000",
		AdvertiseHost:      "localhost",
		Port:               3000,
		ReregisterInterval: 30 * time.Second,
		RegisterTimeout:    5 * time.Second,
	}
}

// Slave hosts the worker-facing HTTP surface and keeps itself registered
// with the master.
type Slave struct {
	config     *Config
	processors *ProcessorRegistry
	app        *fiber.App
	client     *fasthttp.Client
}

// New creates a worker node host.
func New(config *Config, processors *ProcessorRegistry) *Slave {
	if config == nil {
		config = DefaultConfig()
	}
	if processors == nil {
		processors = NewProcessorRegistry()
	}

	app := fiber.New(fiber.Config{
		AppName:     "File Processing Slave",
		BodyLimit:   64 * 1024 * 1024,
		JSONEncoder: sonic.Marshal,
		JSONDecoder: sonic.Unmarshal,
	})

	s := &Slave{
		config:     config,
		processors: processors,
		app:        app,
		client:     &fasthttp.Client{},
	}

	app.Use(fiberrecover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Get("/", s.home)
	app.Get("/check_status", s.checkStatus)
	app.Post("/get_task", s.getTask)

	return s
}

// App returns the underlying Fiber app, used by tests.
func (s *Slave) App() *fiber.App {
	return s.app
}

// Run registers with the master and serves until the context is cancelled.
// A worker that cannot register shuts down instead of serving unregistered.
func (s *Slave) Run(ctx context.Context) error {
	if err := s.RegisterWithMaster(); err != nil {
		return fmt.Errorf("register with master: %w", err)
	}

	reregCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.reregisterLoop(reregCtx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(fmt.Sprintf(":%d", s.config.Port))
	}()

	select {
	case <-ctx.Done():
		return s.app.Shutdown()
	case err := <-errCh:
		return err
	}
}

// RegisterWithMaster announces this worker to the coordinator.
func (s *Slave) RegisterWithMaster() error {
	body, err := sonic.Marshal(map[string]any{
		"host": s.config.AdvertiseHost,
		"port": s.config.Port,
	})
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.config.MasterURL + "/register")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := s.client.DoTimeout(req, resp, s.config.RegisterTimeout); err != nil {
		return err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("master returned status %d", resp.StatusCode())
	}

	logger.Info("registered with master",
		zap.String("master", s.config.MasterURL),
		zap.String("advertise", fmt.Sprintf("%s:%d", s.config.AdvertiseHost, s.config.Port)))
	return nil
}

// reregisterLoop keeps the registration fresh; failures are logged and
// retried on the next tick.
func (s *Slave) reregisterLoop(ctx context.Context) {
	if s.config.ReregisterInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.config.ReregisterInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RegisterWithMaster(); err != nil {
				logger.Warn("re-registration failed", zap.Error(err))
			}
		}
	}
}

// home handles GET /
func (s *Slave) home(c *fiber.Ctx) error {
	return c.SendString("Slave is working")
}

// checkStatus handles GET /check_status, the liveness probe target.
func (s *Slave) checkStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"metrics": collectHostMetrics(),
	})
}

// getTask handles POST /get_task: it validates the job kind, hands the
// file subset to the kind's processor, and returns one encoded result entry
// per file.
func (s *Slave) getTask(c *fiber.Ctx) error {
	kind, err := types.ParseJobKind(c.FormValue("task_type"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	processor, ok := s.processors.Get(kind)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("no processor registered for kind %q", kind),
		})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form: " + err.Error(),
		})
	}

	files, err := readTaskFiles(form, kind)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("no files provided under field %q", kind.FileField()),
		})
	}

	logger.Info("processing task",
		zap.String("kind", string(kind)),
		zap.Int("files", len(files)))

	processed, err := processor.Process(c.Context(), files)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "processing failed: " + err.Error(),
		})
	}

	results := make([]map[string]string, 0, len(processed))
	for _, p := range processed {
		results = append(results, map[string]string{
			"filename":     p.Filename,
			kind.DataKey(): base64.StdEncoding.EncodeToString(p.Data),
		})
	}

	return c.JSON(types.TaskResponse{Results: results})
}

// readTaskFiles drains the multipart parts under the kind's file field,
// preserving order.
func readTaskFiles(form *multipart.Form, kind types.JobKind) ([]types.IncomingFile, error) {
	headers := form.File[kind.FileField()]
	files := make([]types.IncomingFile, 0, len(headers))

	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, types.IncomingFile{
			Filename:    h.Filename,
			ContentType: h.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}
