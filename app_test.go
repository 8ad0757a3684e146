package kidtube

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidtube/config"
	"kidtube/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "kidtube.db")
	cfg.MirrorInstances = []string{"inv.example", "yt.example"}
	return cfg
}

func TestNewAppWithoutAPIKey(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.API)
	assert.Equal(t, []string{"oembed", "invidious"}, app.Resolver.Providers())
	assert.Equal(t, 2, app.Tracker.Len())
}

func TestNewAppWithAPIKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.APIKey = "test-key"

	app, err := NewApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.API)
	assert.Equal(t, []string{"dataapi", "oembed", "invidious"}, app.Resolver.Providers())
}

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTPTimeout = 0

	_, err := NewApp(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestAppAddUnrecognized(t *testing.T) {
	ctx := context.Background()
	app, err := NewApp(ctx, testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer app.Close()

	p := &storage.Profile{Name: "Leo"}
	require.NoError(t, app.Store.CreateProfile(ctx, p))

	_, err = app.Whitelist.AddFromURL(ctx, p.ID, "https://example.com/watch?v=abc")
	assert.ErrorIs(t, err, ErrUnrecognizedURL)
	assert.NotEmpty(t, UserMessage(err))
}
