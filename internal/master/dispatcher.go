package master

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/parth-2005/os-project/pkg/logger"
	"github.com/parth-2005/os-project/pkg/types"
)

// DefaultDispatchTimeout bounds each per-worker call.
const DefaultDispatchTimeout = 45 * time.Second

// Dispatcher fans a submission out to the alive workers, collects their
// responses under a per-call timeout, and assembles the summary in original
// submission order. Failed units are reported in the same cycle; there is
// no retry and no redistribution.
type Dispatcher struct {
	registry     WorkerRegistry
	materializer *Materializer
	client       *fasthttp.Client
	timeout      time.Duration
}

// NewDispatcher creates a dispatcher. A nil client gets a default shared
// fasthttp client; a non-positive timeout falls back to the default.
func NewDispatcher(registry WorkerRegistry, materializer *Materializer, client *fasthttp.Client, timeout time.Duration) *Dispatcher {
	if client == nil {
		client = &fasthttp.Client{
			MaxConnsPerHost:     256,
			MaxIdleConnDuration: 90 * time.Second,
		}
	}
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	return &Dispatcher{
		registry:     registry,
		materializer: materializer,
		client:       client,
		timeout:      timeout,
	}
}

// Execute runs one dispatch cycle for a submission. The registry snapshot
// taken here is not re-validated mid-cycle: a worker marked unreachable by
// one failing unit does not cancel its sibling units, which run to
// completion or timeout.
func (d *Dispatcher) Execute(ctx context.Context, kind types.JobKind, files []types.IncomingFile) (*types.JobSummary, error) {
	start := time.Now()

	snapshot := d.registry.ListAlive()
	units, err := Partition(files, snapshot)
	if err != nil {
		return nil, err
	}

	submissionID := uuid.New().String()
	logger.Info("dispatching submission",
		zap.String("submission", submissionID),
		zap.String("kind", string(kind)),
		zap.Int("files", len(files)),
		zap.Int("workers", len(units)))

	outcomes := make([]types.FileOutcome, len(files))
	session := d.materializer.NewSession(kind)

	// One call per dispatch unit, all issued concurrently; the summary is
	// produced only after every outstanding call has finished.
	var wg sync.WaitGroup
	for i := range units {
		wg.Add(1)
		go func(u *DispatchUnit) {
			defer wg.Done()
			for _, o := range d.dispatchUnit(ctx, kind, u, session) {
				// Each global index belongs to exactly one unit.
				outcomes[o.Index] = o
			}
		}(&units[i])
	}
	wg.Wait()

	summary := types.NewJobSummary(submissionID, kind, outcomes, time.Since(start).Milliseconds())
	logger.Info("submission complete",
		zap.String("submission", submissionID),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int64("elapsed_ms", summary.ElapsedMS))
	return summary, nil
}

// dispatchUnit issues one /get_task call and classifies the outcome of
// every file in the unit.
func (d *Dispatcher) dispatchUnit(ctx context.Context, kind types.JobKind, u *DispatchUnit, session *MaterializeSession) []types.FileOutcome {
	body, contentType, err := encodeTaskRequest(kind, u.Files)
	if err != nil {
		return unitFailure(u, types.StatusWorkerFailed, fmt.Errorf("encode request: %w", err))
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(u.Worker.BaseURL() + "/get_task")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(contentType)
	req.SetBody(body)

	if err := d.client.DoTimeout(req, resp, d.timeout); err != nil {
		// Transport failure or timeout is sufficient evidence of
		// unreachability: the worker is barred from future partitioning
		// until it re-registers.
		status := types.StatusWorkerFailed
		if errors.Is(err, fasthttp.ErrTimeout) {
			status = types.StatusWorkerTimedOut
		}
		if merr := d.registry.MarkUnreachable(u.Worker.ID); merr == nil {
			logger.Warn("worker unreachable during dispatch, removed from rotation",
				zap.String("worker", string(u.Worker.ID)),
				zap.Error(err))
		}
		return unitFailure(u, status, err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		// The worker answered, so it stays registered; the unit still fails.
		return unitFailure(u, types.StatusWorkerFailed,
			fmt.Errorf("worker returned status %d", resp.StatusCode()))
	}

	var tr types.TaskResponse
	if err := sonic.Unmarshal(resp.Body(), &tr); err != nil {
		// A garbled response is not a reachability signal.
		return unitFailure(u, types.StatusDecodeError, fmt.Errorf("parse response: %w", err))
	}

	return d.collectUnit(kind, u, &tr, session)
}

// collectUnit decodes each file's result entry individually; a malformed
// entry affects only its own file.
func (d *Dispatcher) collectUnit(kind types.JobKind, u *DispatchUnit, tr *types.TaskResponse, session *MaterializeSession) []types.FileOutcome {
	// Entries are matched to files by filename; duplicates are consumed in
	// arrival order.
	byName := make(map[string][]map[string]string, len(tr.Results))
	for _, entry := range tr.Results {
		name := entry["filename"]
		byName[name] = append(byName[name], entry)
	}

	outcomes := make([]types.FileOutcome, 0, len(u.Files))
	for _, f := range u.Files {
		outcomes = append(outcomes, d.collectFile(kind, f, byName, session))
	}
	return outcomes
}

func (d *Dispatcher) collectFile(kind types.JobKind, f IndexedFile, byName map[string][]map[string]string, session *MaterializeSession) types.FileOutcome {
	out := types.FileOutcome{Index: f.Index, Filename: f.File.Filename}

	queue := byName[f.File.Filename]
	if len(queue) == 0 {
		out.Status = types.StatusDecodeError
		out.Error = "no result entry for file"
		return out
	}
	entry := queue[0]
	byName[f.File.Filename] = queue[1:]

	payload, ok := entry[kind.DataKey()]
	if !ok || payload == "" {
		out.Status = types.StatusDecodeError
		out.Error = fmt.Sprintf("result entry missing %s", kind.DataKey())
		return out
	}

	path, err := session.Store(f.Index, f.File.Filename, payload)
	if err != nil {
		if errors.Is(err, ErrPersist) {
			out.Status = types.StatusPersistError
		} else {
			out.Status = types.StatusDecodeError
		}
		out.Error = err.Error()
		return out
	}

	out.Status = types.StatusSucceeded
	out.Path = path
	return out
}

// unitFailure records the same failure for every file in the unit.
func unitFailure(u *DispatchUnit, status types.OutcomeStatus, err error) []types.FileOutcome {
	outcomes := make([]types.FileOutcome, 0, len(u.Files))
	for _, f := range u.Files {
		outcomes = append(outcomes, types.FileOutcome{
			Index:    f.Index,
			Filename: f.File.Filename,
			Status:   status,
			Error:    err.Error(),
		})
	}
	return outcomes
}

// encodeTaskRequest builds the multipart /get_task body: a task_type field
// plus one file part per input under the kind's field name.
func encodeTaskRequest(kind types.JobKind, files []IndexedFile) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("task_type", string(kind)); err != nil {
		return nil, "", err
	}

	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
				kind.FileField(), escapeQuotes(f.File.Filename)))
		contentType := f.File.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.File.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
