package master

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/parth-2005/os-project/pkg/logger"
	"github.com/parth-2005/os-project/pkg/types"
)

// defaultProbeTimeout bounds a liveness call; it is deliberately much
// shorter than the dispatch timeout.
const defaultProbeTimeout = 2 * time.Second

// HTTPProber probes workers over their /check_status endpoint.
type HTTPProber struct {
	client  *fasthttp.Client
	timeout time.Duration
}

// NewHTTPProber creates a prober with the given per-probe timeout.
func NewHTTPProber(client *fasthttp.Client, timeout time.Duration) *HTTPProber {
	if client == nil {
		client = &fasthttp.Client{}
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &HTTPProber{client: client, timeout: timeout}
}

// Probe performs a GET /check_status against the worker.
func (p *HTTPProber) Probe(ctx context.Context, worker *types.WorkerInfo) types.WorkerState {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(worker.BaseURL() + "/check_status")
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := p.client.DoTimeout(req, resp, p.timeout); err != nil {
		return types.WorkerStateUnreachable
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return types.WorkerStateUnreachable
	}
	return types.WorkerStateAlive
}

// Sweep probes every registered worker and evicts the ones that fail,
// returning the number evicted. It is the eager counterpart to the lazy
// marking the dispatcher performs on call failure.
func Sweep(ctx context.Context, prober LivenessProber, registry WorkerRegistry) int {
	evicted := 0
	for _, w := range registry.ListAll() {
		if prober.Probe(ctx, w) == types.WorkerStateAlive {
			continue
		}
		if err := registry.Evict(w.ID); err == nil {
			evicted++
			logger.Warn("worker failed liveness probe, evicted",
				zap.String("worker", string(w.ID)))
		}
	}
	return evicted
}
