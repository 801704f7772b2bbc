package zotero

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bibsync/internal/entities"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "12345", "secret", WithHTTPClient(server.Client()))
}

func TestClient_Version(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/groups/12345/items", r.URL.Path)
		assert.Equal(t, "keys", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "secret", r.Header.Get(headerAPIKey))
		assert.Equal(t, "3", r.Header.Get(headerAPIVersion))
		w.Header().Set(headerLastModified, "1234")
		_, _ = io.WriteString(w, "ABCD1234\n")
	})

	version, err := client.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1234", version)
}

func TestClient_VersionMissingHeader(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := client.Version(context.Background())
	assert.ErrorIs(t, err, ErrMissingVersion)
}

func TestClient_ListKeys(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("start"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		_, _ = io.WriteString(w, "AAAA1111\nBBBB2222\n\n")
	})

	keys, err := client.ListKeys(context.Background(), 100, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAAA1111", "BBBB2222"}, keys)
}

func TestClient_Snapshot(t *testing.T) {
	pages := map[string]string{
		"0": `[{"key":"K1","version":3,"data":{"key":"K1","version":3,"itemType":"book","title":"Eins"}},
		       {"key":"K2","version":4,"data":{"itemType":"note","note":"x"}}]`,
		"2": `[{"key":"K3","version":5,"data":{"key":"K3","itemType":"report","title":"Drei","collections":[]}}]`,
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerLastModified, "77")
		_, _ = io.WriteString(w, pages[r.URL.Query().Get("start")])
	})

	snap, err := client.Snapshot(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "77", snap.Version)
	require.Len(t, snap.Items, 3)
	assert.Equal(t, "K2", snap.Items[1].Key, "key falls back to the envelope")
	assert.Equal(t, 4, snap.Items[1].Version)
	assert.Equal(t, "Drei", snap.Items[2].Title())
}

func TestClient_CreateItems(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "41", r.Header.Get(headerIfUnmodifiedSince))
		assert.Equal(t, contentTypeJSON, r.Header.Get("Content-Type"))

		var body []map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body, 3)
		assert.Equal(t, "journalArticle", body[0]["itemType"])

		w.Header().Set(headerLastModified, "42")
		_, _ = io.WriteString(w, `{
			"successful": {"0": {"key": "NEW00001"}},
			"success": {"0": "NEW00001"},
			"unchanged": {"1": "OLD00001"},
			"failed": {"2": {"key": "", "code": 400, "message": "Invalid field"}}
		}`)
	})

	items := make([]entities.Item, 3)
	for i := range items {
		item := entities.NewItem(entities.ItemTypeJournalArticle)
		item.SetField(entities.FieldTitle, "T")
		items[i] = *item
	}

	result, err := client.CreateItems(context.Background(), items, "41")
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "NEW00001"}, result.Successful)
	assert.Equal(t, map[int]string{1: "OLD00001"}, result.Unchanged)
	assert.Equal(t, "Invalid field", result.Failed[2].Message)
	assert.Equal(t, 400, result.Failed[2].Code)
	assert.Equal(t, "42", result.Version)
}

func TestClient_CreateItemsSuccessfulObjectsOnly(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"successful": {"0": {"key": "NEW00001", "version": 5}}}`)
	})

	result, err := client.CreateItems(context.Background(), []entities.Item{*entities.NewItem(entities.ItemTypeBook)}, "")
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "NEW00001"}, result.Successful)
}

func TestClient_DeleteItems(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "A,B", r.URL.Query().Get("itemKey"))
		assert.Equal(t, "10", r.Header.Get(headerIfUnmodifiedSince))
		w.Header().Set(headerLastModified, "11")
		w.WriteHeader(http.StatusNoContent)
	})

	version, err := client.DeleteItems(context.Background(), []string{"A", "B"}, "10")
	require.NoError(t, err)
	assert.Equal(t, "11", version)
}

func TestClient_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		header    map[string]string
		check     func(t *testing.T, err error)
		transient bool
	}{
		{
			name:   "version conflict",
			status: http.StatusPreconditionFailed,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrVersionConflict) },
		},
		{
			name:   "too large",
			status: http.StatusRequestEntityTooLarge,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrRequestTooLarge) },
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			header: map[string]string{headerRetryAfter: "7"},
			check: func(t *testing.T, err error) {
				var rl *RateLimitError
				require.ErrorAs(t, err, &rl)
				assert.Equal(t, 7*time.Second, rl.RetryAfter)
			},
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			check: func(t *testing.T, err error) {
				var se *ServerError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusBadGateway, se.StatusCode)
			},
			transient: true,
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "Forbidden", apiErr.Body)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, "Forbidden")
			})

			_, err := client.CreateItems(context.Background(), nil, "1")
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, tt.transient, IsTransient(err))
			assert.Equal(t, tt.status, StatusCode(err))
		})
	}
}

func TestClient_TransportErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, "1", "k")
	_, err := client.Version(context.Background())

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, IsTransient(err))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 30*time.Second, parseRetryAfter(" 30 "))
	assert.Equal(t, time.Duration(0), parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
}

func TestClient_ItemsURL(t *testing.T) {
	client := NewClient("https://api.example.org/", "99", "k")
	assert.True(t, strings.HasPrefix(client.itemsURL(nil), "https://api.example.org/groups/99/items"))
}
