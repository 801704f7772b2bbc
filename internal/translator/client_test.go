package translator

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bibsync/internal/entities"
)

type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

const twoEntries = "TY  - JOUR\nT1  - Eins\nER  - \nTY  - BOOK\nT1  - Zwei\nER  - \n"

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *recordingSleeper) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	sleeper := &recordingSleeper{}
	opts = append([]Option{WithHTTPClient(server.Client())}, opts...)
	return NewClient(server.URL, time.Second, sleeper, zerolog.Nop(), opts...), sleeper
}

func TestTranslate_Success(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, twoEntries, string(body))
		_, _ = io.WriteString(w, `[{"itemType":"journalArticle","title":"Eins","attachments":[]},{"itemType":"book","title":"Zwei"}]`)
	})

	items, err := client.Translate(context.Background(), twoEntries)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, entities.ItemTypeBook, items[1].ItemType)
	assert.Equal(t, "Eins", items[0].Title())
}

func TestTranslate_OverloadedBacksOff(t *testing.T) {
	calls := 0
	client, sleeper := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `[{"itemType":"book","title":"Zwei"}]`)
	})

	items, err := client.Translate(context.Background(), twoEntries)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, []time.Duration{5 * time.Second}, sleeper.waits)
}

func TestTranslate_RateLimitDefaultWait(t *testing.T) {
	calls := 0
	client, sleeper := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `[{"itemType":"book"}]`)
	})

	_, err := client.Translate(context.Background(), twoEntries)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{120 * time.Second}, sleeper.waits)
}

func TestTranslate_EmptyResponseFails(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})

	_, err := client.Translate(context.Background(), twoEntries)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestTranslateAll_FallsBackToChunks(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Count(string(body), "TY  -") > 1 {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		_, _ = io.WriteString(w, `[{"itemType":"journalArticle","title":"chunk"}]`)
	}, WithChunkSize(1))

	items, err := client.TranslateAll(context.Background(), twoEntries)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestTranslateAll_ChunkFailureFails(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}, WithChunkSize(1))

	_, err := client.TranslateAll(context.Background(), twoEntries)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk 1/2")
}
