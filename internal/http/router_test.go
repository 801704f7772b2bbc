package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bibsync/internal/database/runs"
	"github.com/mrlokans/bibsync/internal/dedupe"
	"github.com/mrlokans/bibsync/internal/entities"
	"github.com/mrlokans/bibsync/internal/importers"
	"github.com/mrlokans/bibsync/internal/ris"
	"github.com/mrlokans/bibsync/internal/scheduler"
	"github.com/mrlokans/bibsync/internal/syncer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeScheduler struct {
	running bool
	syncing bool
	runs    int
	lastErr error
}

func (f *fakeScheduler) IsRunning() bool { return f.running }
func (f *fakeScheduler) IsSyncing() bool { return f.syncing }
func (f *fakeScheduler) NextRunTime() *time.Time {
	if !f.running {
		return nil
	}
	t := time.Date(2024, 5, 2, 3, 0, 0, 0, time.UTC)
	return &t
}
func (f *fakeScheduler) LastRun() (time.Time, error) {
	if f.runs == 0 {
		return time.Time{}, nil
	}
	return time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC), f.lastErr
}
func (f *fakeScheduler) RunNow() error {
	if f.syncing {
		return scheduler.ErrAlreadySyncing
	}
	f.runs++
	return nil
}

type fakeHistory struct {
	runs []entities.SyncRun
	err  error
}

func (f *fakeHistory) Recent(limit int) ([]entities.SyncRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func (f *fakeHistory) GetByRunID(id string) (*entities.SyncRun, error) {
	for i := range f.runs {
		if f.runs[i].RunID == id {
			return &f.runs[i], nil
		}
	}
	return nil, runs.ErrRunNotFound
}

type fakeImporter struct {
	result *importers.ImportResult
	err    error
	got    string
}

func (f *fakeImporter) Import(_ context.Context, content, _ string) (*importers.ImportResult, error) {
	f.got = content
	return f.result, f.err
}

func newTestRouter(cfg RouterConfig) *gin.Engine {
	cfg.Logger = zerolog.Nop()
	if cfg.Converter == nil {
		cfg.Converter = importers.NewPipeline(nil, importers.NewLocalConverter(zerolog.Nop()), zerolog.Nop(), importers.Options{})
	}
	return NewRouter(cfg)
}

func do(router *gin.Engine, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	router.ServeHTTP(w, req)
	return w
}

const archivalExport = "DTY: MO\nVER: Einzel, E.\nHST: Monographie\nERJ: 1998\n&&&\n"

func TestConvert(t *testing.T) {
	router := newTestRouter(RouterConfig{})

	t.Run("json response", func(t *testing.T) {
		w := do(router, "POST", "/api/convert", []byte(archivalExport), "text/plain")
		require.Equal(t, http.StatusOK, w.Code)

		var resp ConvertResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Records)
		assert.Contains(t, resp.RIS, "TY  - BOOK")
		assert.NotEmpty(t, resp.RunID)
	})

	t.Run("plain exchange text", func(t *testing.T) {
		w := do(router, "POST", "/api/convert?format=ris", []byte(archivalExport), "text/plain")
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.HasPrefix(w.Body.String(), "TY  - BOOK"))
		assert.NotEmpty(t, w.Header().Get("X-Run-ID"))
	})

	t.Run("windows-1252 upload", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", "export.wrk")
		require.NoError(t, err)
		_, _ = part.Write([]byte("DTY: MO\nHST: Stra\xdfe\n&&&\n"))
		require.NoError(t, mw.Close())

		w := do(router, "POST", "/api/convert", body.Bytes(), mw.FormDataContentType())
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Straße")
	})

	t.Run("no records", func(t *testing.T) {
		w := do(router, "POST", "/api/convert", []byte("nothing here"), "text/plain")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestBuildItems(t *testing.T) {
	router := newTestRouter(RouterConfig{})

	w := do(router, "POST", "/api/items", []byte("TY  - BOOK\nA1  - Einzel, E.\nT1  - Monographie\nER  - \n"), "text/plain")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []entities.Item `json:"items"`
		Stats ItemStats       `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, entities.ItemTypeBook, resp.Items[0].ItemType)
	assert.Equal(t, "Monographie", resp.Items[0].Title())
	assert.Equal(t, 1, resp.Stats.Entries)
	assert.Equal(t, 1, resp.Stats.Authors)

	w = do(router, "POST", "/api/items", []byte("T1  - no type\n"), "text/plain")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDetectDuplicates(t *testing.T) {
	router := newTestRouter(RouterConfig{})

	body := []byte(`{
		"candidates": [
			{"itemType": "journalArticle", "title": "A", "DOI": "doi:10.1000/X"},
			{"itemType": "book", "title": "Neu"}
		],
		"existing": [
			{"key": "ABC", "itemType": "journalArticle", "title": "Other", "DOI": "https://doi.org/10.1000/x"}
		]
	}`)
	w := do(router, "POST", "/api/duplicates", body, "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Unique     []entities.Item `json:"unique"`
		Duplicates []dedupe.Match  `json:"duplicates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Duplicates, 1)
	assert.Equal(t, dedupe.MatchDOI, resp.Duplicates[0].Kind)
	assert.Equal(t, "ABC", resp.Duplicates[0].Existing.Key)
	require.Len(t, resp.Unique, 1)
	assert.Equal(t, "Neu", resp.Unique[0].Title())

	w = do(router, "POST", "/api/duplicates", []byte(`{"candidates": [], "similarity": 2}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, "POST", "/api/duplicates", []byte(`not json`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImport(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		imp := &fakeImporter{result: &importers.ImportResult{
			RunID:      "run-1",
			Candidates: 2,
			Upload:     &syncer.UploadResult{Uploaded: 2},
		}}
		router := newTestRouter(RouterConfig{Importer: imp})

		w := do(router, "POST", "/api/import", []byte("TY  - BOOK\nER  - \n"), "text/plain")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "TY  - BOOK\nER  - \n", imp.got)

		var resp ImportResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Uploaded)
		assert.Equal(t, "run-1", resp.RunID)
	})

	t.Run("invalid exchange text", func(t *testing.T) {
		imp := &fakeImporter{result: &importers.ImportResult{RunID: "run-2"}, err: ris.ErrNoEntries}
		w := do(newTestRouter(RouterConfig{Importer: imp}), "POST", "/api/import", []byte("x"), "text/plain")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("library unavailable", func(t *testing.T) {
		imp := &fakeImporter{result: &importers.ImportResult{RunID: "run-3"}, err: errors.Join(syncer.ErrVersionUnavailable, errors.New("offline"))}
		w := do(newTestRouter(RouterConfig{Importer: imp}), "POST", "/api/import", []byte("x"), "text/plain")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "offline")
	})

	t.Run("another run in progress", func(t *testing.T) {
		imp := &fakeImporter{err: importers.ErrBusy}
		w := do(newTestRouter(RouterConfig{Importer: imp}), "POST", "/api/import", []byte("x"), "text/plain")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("disabled without importer", func(t *testing.T) {
		w := do(newTestRouter(RouterConfig{}), "POST", "/api/import", []byte("x"), "text/plain")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRuns(t *testing.T) {
	history := &fakeHistory{runs: []entities.SyncRun{
		{RunID: "b", Command: entities.SyncCommandImport},
		{RunID: "a", Command: entities.SyncCommandConvert},
	}}
	router := newTestRouter(RouterConfig{History: history})

	w := do(router, "GET", "/api/runs?limit=1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []entities.SyncRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].RunID)

	assert.Equal(t, http.StatusBadRequest, do(router, "GET", "/api/runs?limit=-3", nil, "").Code)
	assert.Equal(t, http.StatusOK, do(router, "GET", "/api/runs/a", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, do(router, "GET", "/api/runs/zzz", nil, "").Code)

	history.err = errors.New("disk full")
	w = do(router, "GET", "/api/runs", nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk full")
}

func TestSchedule(t *testing.T) {
	sched := &fakeScheduler{running: true}
	router := newTestRouter(RouterConfig{Scheduler: sched})

	w := do(router, "POST", "/api/schedule/run", nil, "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, sched.runs)

	sched.lastErr = errors.New("boom")
	w = do(router, "GET", "/api/schedule", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var status ScheduleStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.Running)
	assert.NotNil(t, status.NextRun)
	assert.NotNil(t, status.LastRun)
	assert.Equal(t, "boom", status.LastError)

	sched.syncing = true
	assert.Equal(t, http.StatusConflict, do(router, "POST", "/api/schedule/run", nil, "").Code)
}
