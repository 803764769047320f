package rest

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/parth-2005/os-project/internal/master"
	"github.com/parth-2005/os-project/pkg/logger"
	"github.com/parth-2005/os-project/pkg/types"
)

// home handles GET /
func (s *Server) home(c *fiber.Ctx) error {
	return c.SendString("Master is working")
}

// checkStatus handles GET /check_status
func (s *Server) checkStatus(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{Status: "alive"})
}

// registerWorker handles POST /register. Registration is an upsert: the
// same (host, port) pair never produces a duplicate entry, and reachability
// is not verified here.
func (s *Server) registerWorker(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "failed to parse request body: " + err.Error(),
		})
	}

	id, err := s.registry.Register(req.Host, req.Port)
	if err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, master.ErrRegistryFull) {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(ErrorResponse{
			Error:   "registration_failed",
			Message: err.Error(),
		})
	}

	logger.Info("worker registered", zap.String("worker", string(id)))
	return c.JSON(RegisterResponse{
		Status:   "registered",
		WorkerID: string(id),
	})
}

// assignTask handles POST /assign_task: it validates the job kind, collects
// the uploaded files, and runs one dispatch cycle. The only submission-level
// failure after validation is the absence of live workers; everything else
// is reported per file inside the summary.
func (s *Server) assignTask(c *fiber.Ctx) error {
	kind, err := types.ParseJobKind(c.FormValue("task_type"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "unknown_task_type",
			Message: err.Error(),
		})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "failed to parse multipart form: " + err.Error(),
		})
	}

	files, err := readSubmissionFiles(form, kind)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	}
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "no_files",
			Message: "no files provided for " + string(kind) + " processing under field " + kind.FileField(),
		})
	}

	ctx := context.Background()
	if s.config.EagerSweep {
		master.Sweep(ctx, s.prober, s.registry)
	}

	summary, err := s.dispatcher.Execute(ctx, kind, files)
	if err != nil {
		if errors.Is(err, master.ErrNoWorkers) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
				Error:   "no_workers",
				Message: "no workers available",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "dispatch_failed",
			Message: err.Error(),
		})
	}

	return c.JSON(summary)
}

// listWorkers handles GET /workers
func (s *Server) listWorkers(c *fiber.Ctx) error {
	all := s.registry.ListAll()
	workers := make([]WorkerResponse, 0, len(all))
	for _, w := range all {
		workers = append(workers, WorkerResponse{
			ID:           string(w.ID),
			Host:         w.Host,
			Port:         w.Port,
			State:        string(w.State),
			RegisteredAt: w.RegisteredAt.Format(time.RFC3339),
			LastSeen:     w.LastSeen.Format(time.RFC3339),
		})
	}
	return c.JSON(WorkerListResponse{Workers: workers, Total: len(workers)})
}

// readSubmissionFiles drains the multipart parts under the kind's file
// field, preserving upload order.
func readSubmissionFiles(form *multipart.Form, kind types.JobKind) ([]types.IncomingFile, error) {
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
