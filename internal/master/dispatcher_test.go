package master

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parth-2005/os-project/pkg/types"
)

// echoWorker answers /get_task the way a real worker does: one result entry
// per uploaded file, payload "processed:"+content base64-encoded under the
// kind's data key.
func echoWorker(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		kind, err := types.ParseJobKind(r.FormValue("task_type"))
		require.NoError(t, err)

		var results []map[string]string
		for _, fh := range r.MultipartForm.File[kind.FileField()] {
			f, err := fh.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(f)
			require.NoError(t, err)
			f.Close()

			results = append(results, map[string]string{
				"filename":     fh.Filename,
				kind.DataKey(): base64.StdEncoding.EncodeToString(append([]byte("processed:"), data...)),
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
}

func makeSubmission(n int) []types.IncomingFile {
	files := make([]types.IncomingFile, 0, n)
	for i := 0; i < n; i++ {
		files = append(files, types.IncomingFile{
			Filename:    "file" + string(rune('a'+i)) + ".png",
			ContentType: "image/png",
			Data:        []byte{byte(i), 1, 2},
		})
	}
	return files
}

func newTestDispatcher(t *testing.T, registry WorkerRegistry, timeout time.Duration) *Dispatcher {
	t.Helper()
	return NewDispatcher(registry, NewMaterializer(t.TempDir()), nil, timeout)
}

func TestExecuteNoWorkers(t *testing.T) {
	registry := NewInMemoryWorkerRegistry(10)
	d := newTestDispatcher(t, registry, time.Second)

	_, err := d.Execute(context.Background(), types.JobKindImage, makeSubmission(3))
	assert.ErrorIs(t, err, ErrNoWorkers)
}

func TestExecuteAllSucceed(t *testing.T) {
	w1 := echoWorker(t)
	defer w1.Close()
	w2 := echoWorker(t)
	defer w2.Close()

	registry := NewInMemoryWorkerRegistry(10)
	registerTestWorker(t, registry, w1.URL)
	registerTestWorker(t, registry, w2.URL)

	outDir := t.TempDir()
	d := NewDispatcher(registry, NewMaterializer(outDir), nil, 5*time.Second)

	files := makeSubmission(5)
	summary, err := d.Execute(context.Background(), types.JobKindImage, files)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 5, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.NotEmpty(t, summary.SubmissionID)
	require.Len(t, summary.Files, 5)

	// Outcomes come back in submission order regardless of which worker
	// handled each file.
	for i, o := range summary.Files {
		assert.Equal(t, i, o.Index)
		assert.Equal(t, files[i].Filename, o.Filename)
		assert.Equal(t, types.StatusSucceeded, o.Status)

		data, err := os.ReadFile(o.Path)
		require.NoError(t, err)
		assert.Equal(t, append([]byte("processed:"), files[i].Data...), data)
	}

	entries, err := os.ReadDir(filepath.Join(outDir, "image"))
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestExecuteWorkerTimeout(t *testing.T) {
	fast := echoWorker(t)
	defer fast.Close()
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer slow.Close()

	registry := NewInMemoryWorkerRegistry(10)
	registerTestWorker(t, registry, fast.URL)
	slowWorker := registerTestWorker(t, registry, slow.URL)

	d := newTestDispatcher(t, registry, 300*time.Millisecond)

	summary, err := d.Execute(context.Background(), types.JobKindImage, makeSubmission(5))
	require.NoError(t, err)

	// Round-robin: files 0,2,4 land on the fast worker, 1,3 on the slow one.
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	for _, i := range []int{0, 2, 4} {
		assert.Equal(t, types.StatusSucceeded, summary.Files[i].Status)
	}
	for _, i := range []int{1, 3} {
		assert.Equal(t, types.StatusWorkerTimedOut, summary.Files[i].Status)
		assert.NotEmpty(t, summary.Files[i].Error)
	}

	// The timed-out worker is out of rotation but not forgotten.
	alive := registry.ListAlive()
	require.Len(t, alive, 1)
	assert.NotEqual(t, slowWorker.ID, alive[0].ID)
	assert.Equal(t, 2, registry.Count())
}

func TestExecuteWorkerConnectionRefused(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	registry := NewInMemoryWorkerRegistry(10)
	registerTestWorker(t, registry, dead.URL)
	dead.Close()

	d := newTestDispatcher(t, registry, time.Second)

	summary, err := d.Execute(context.Background(), types.JobKindImage, makeSubmission(2))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Failed)
	for _, o := range summary.Files {
		assert.Equal(t, types.StatusWorkerFailed, o.Status)
	}
	assert.Empty(t, registry.ListAlive())
}

func TestExecuteNon200KeepsWorkerRegistered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	registry := NewInMemoryWorkerRegistry(10)
	registerTestWorker(t, registry, srv.URL)

	d := newTestDispatcher(t, registry, time.Second)

	summary, err := d.Execute(context.Background(), types.JobKindText, makeSubmission(3))
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Failed)
	for _, o := range summary.Files {
		assert.Equal(t, types.StatusWorkerFailed, o.Status)
	}
	// The worker answered, so it stays in rotation.
	assert.Len(t, registry.ListAlive(), 1)
}

func TestExecuteMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	registry := NewInMemoryWorkerRegistry(10)
	registerTestWorker(t, registry, srv.URL)

	d := newTestDispatcher(t, registry, time.Second)

	summary, err := d.Execute(context.Background(), types.JobKindOCR, makeSubmission(2))
	require.NoError(t, err)

	for _, o := range summary.Files {
		assert.Equal(t, types.StatusDecodeError, o.Status)
	}
	assert.Len(t, registry.ListAlive(), 1)
}

func TestExecuteMissingResultEntry(t *testing.T) {
	// Answers only for the first file of each unit.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		kind, _ := types.ParseJobKind(r.FormValue("task_type"))
		fh := r.MultipartForm.File[kind.FileField()][0]
		results := []map[string]string{{
			"filename":     fh.Filename,
			kind.DataKey(): base64.StdEncoding.EncodeToString([]byte("x")),
		}}
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
	defer srv.Close()

	registry := NewInMemoryWorkerRegistry(10)
	registerTestWorker(t, registry, srv.URL)

	d := newTestDispatcher(t, registry, time.Second)

	summary, err := d.Execute(context.Background(), types.JobKindImage, makeSubmission(3))
	require.NoError(t, err)

	assert.Equal(t, types.StatusSucceeded, summary.Files[0].Status)
	assert.Equal(t, types.StatusDecodeError, summary.Files[1].Status)
	assert.Equal(t, "no result entry for file", summary.Files[1].Error)
	assert.Equal(t, types.StatusDecodeError, summary.Files[2].Status)
}

func TestExecuteEntryMissingDataKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		kind, _ := types.ParseJobKind(r.FormValue("task_type"))
		var results []map[string]string
		for _, fh := range r.MultipartForm.File[kind.FileField()] {
			results = append(results, map[string]string{"filename": fh.Filename})
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
	defer srv.Close()

	registry := NewInMemoryWorkerRegistry(10)
	registerTestWorker(t, registry, srv.URL)

	d := newTestDispatcher(t, registry, time.Second)

	summary, err := d.Execute(context.Background(), types.JobKindAudio, makeSubmission(1))
	require.NoError(t, err)

	assert.Equal(t, types.StatusDecodeError, summary.Files[0].Status)
	assert.Contains(t, summary.Files[0].Error, "audio_data")
}

func TestExecuteBadBase64Payload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		kind, _ := types.ParseJobKind(r.FormValue("task_type"))
		var results []map[string]string
		for _, fh := range r.MultipartForm.File[kind.FileField()] {
			results = append(results, map[string]string{
				"filename":     fh.Filename,
				kind.DataKey(): "%%% not base64 %%%",
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
	defer srv.Close()

	registry := NewInMemoryWorkerRegistry(10)
	registerTestWorker(t, registry, srv.URL)

	d := newTestDispatcher(t, registry, time.Second)

	summary, err := d.Execute(context.Background(), types.JobKindDocument, makeSubmission(1))
	require.NoError(t, err)

	assert.Equal(t, types.StatusDecodeError, summary.Files[0].Status)
}
