package entrypoint

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bibsync/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Report.Dir = t.TempDir()
	cfg.Retry.MaxAttempts = 4
	cfg.Retry.Backoff = time.Second
	return cfg
}

func TestNewApp_LocalOnly(t *testing.T) {
	app, err := NewApp(testConfig(t), zerolog.Nop(), AppOptions{})
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Pipeline)
	assert.Nil(t, app.Client)
	assert.Nil(t, app.DB, "history is disabled without a database path")
	assert.Nil(t, app.History)
}

func TestNewApp_RemoteNeedsCredentials(t *testing.T) {
	_, err := NewApp(testConfig(t), zerolog.Nop(), AppOptions{Remote: true})
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
}

func TestNewApp_WithHistoryAndRemote(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Path = filepath.Join(t.TempDir(), "runs.db")
	cfg.Zotero.GroupID = "123"
	cfg.Zotero.APIKey = "secret"
	cfg.Zotero.APIURL = "http://localhost:1"

	app, err := NewApp(cfg, zerolog.Nop(), AppOptions{Remote: true})
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.History)
	require.NotNil(t, app.Client)
	assert.Equal(t, "123", app.Client.GroupID())
}

func TestRetryPolicy(t *testing.T) {
	p := RetryPolicy(testConfig(t))
	assert.Equal(t, 4, p.MaxAttempts)
	assert.Equal(t, time.Second, p.InitialBackoff)
	assert.Equal(t, 60*time.Second, p.MaxBackoff, "unset values fall back to defaults")
	assert.Equal(t, 60*time.Second, p.RateLimitWait)
}
