package slave

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parth-2005/os-project/pkg/types"
)

// upperProcessor uppercases file contents, enough to observe that the
// processor actually ran.
var upperProcessor = ProcessorFunc(func(ctx context.Context, files []types.IncomingFile) ([]ProcessedFile, error) {
	out := make([]ProcessedFile, 0, len(files))
	for _, f := range files {
		out = append(out, ProcessedFile{
			Filename: f.Filename,
			Data:     bytes.ToUpper(f.Data),
		})
	}
	return out, nil
})

func newTestSlave(t *testing.T, kind types.JobKind, p Processor) *Slave {
	t.Helper()
	registry := NewProcessorRegistry()
	if p != nil {
		require.NoError(t, registry.Register(kind, p))
	}
	return New(DefaultConfig(), registry)
}

func taskRequest(t *testing.T, taskType, fileField string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("task_type", taskType))
	for name, data := range files {
		part, err := w.CreateFormFile(fileField, name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/get_task", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHome(t *testing.T) {
	s := newTestSlave(t, types.JobKindText, upperProcessor)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "Slave is working", string(body))
}

func TestCheckStatus(t *testing.T) {
	s := newTestSlave(t, types.JobKindText, upperProcessor)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/check_status", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Status  string      `json:"status"`
		Metrics HostMetrics `json:"metrics"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "alive", payload.Status)
}

func TestGetTaskSuccess(t *testing.T) {
	s := newTestSlave(t, types.JobKindText, upperProcessor)

	req := taskRequest(t, "text", "texts", map[string][]byte{"note.txt": []byte("hello")})
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tr types.TaskResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tr))
	require.Len(t, tr.Results, 1)

	entry := tr.Results[0]
	assert.Equal(t, "note.txt", entry["filename"])
	data, err := base64.StdEncoding.DecodeString(entry["analysis_data"])
	require.NoError(t, err)
	assert.Equal(t, "HELLO", string(data))
}

func TestGetTaskUnknownKind(t *testing.T) {
	s := newTestSlave(t, types.JobKindText, upperProcessor)

	req := taskRequest(t, "video", "texts", map[string][]byte{"a.txt": []byte("x")})
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetTaskNoProcessorForKind(t *testing.T) {
	s := newTestSlave(t, types.JobKindText, upperProcessor)

	req := taskRequest(t, "image", "images", map[string][]byte{"a.png": {1, 2}})
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Contains(t, payload["error"], "no processor registered")
}

func TestGetTaskNoFiles(t *testing.T) {
	s := newTestSlave(t, types.JobKindText, upperProcessor)

	req := taskRequest(t, "text", "texts", nil)
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetTaskWrongFieldIgnored(t *testing.T) {
	s := newTestSlave(t, types.JobKindText, upperProcessor)

	// Files under a foreign field are not the kind's inputs.
	req := taskRequest(t, "text", "images", map[string][]byte{"a.txt": []byte("x")})
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetTaskProcessorFailure(t *testing.T) {
	failing := ProcessorFunc(func(ctx context.Context, files []types.IncomingFile) ([]ProcessedFile, error) {
		return nil, errors.New("model not loaded")
	})
	s := newTestSlave(t, types.JobKindOCR, failing)

	req := taskRequest(t, "ocr", "images", map[string][]byte{"scan.png": {1}})
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestRegisterWithMaster(t *testing.T) {
	var got map[string]any
	master := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/register", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]string{"status": "registered"})
	}))
	defer master.Close()

	cfg := DefaultConfig()
	cfg.MasterURL = master.URL
	cfg.AdvertiseHost = "10.1.2.3"
	cfg.Port = 3100

	s := New(cfg, NewProcessorRegistry())
	require.NoError(t, s.RegisterWithMaster())

	assert.Equal(t, "10.1.2.3", got["host"])
	assert.Equal(t, float64(3100), got["port"])
}

func TestRegisterWithMasterRejected(t *testing.T) {
	master := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "full", http.StatusServiceUnavailable)
	}))
	defer master.Close()

	cfg := DefaultConfig()
	cfg.MasterURL = master.URL

	s := New(cfg, NewProcessorRegistry())
	err := s.RegisterWithMaster()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestProcessorRegistry(t *testing.T) {
	r := NewProcessorRegistry()

	require.NoError(t, r.Register(types.JobKindText, upperProcessor))
	require.NoError(t, r.Register(types.JobKindImage, upperProcessor))
	assert.Error(t, r.Register(types.JobKind("video"), upperProcessor))

	_, ok := r.Get(types.JobKindText)
	assert.True(t, ok)
	_, ok = r.Get(types.JobKindAudio)
	assert.False(t, ok)

	// Kinds come back in enumeration order, not registration order.
	assert.Equal(t, []types.JobKind{types.JobKindImage, types.JobKindText}, r.Kinds())
}
