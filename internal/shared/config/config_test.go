package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/league-wager-engine/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "resolution-worker")
	t.Setenv("LEDGER_DRIVER", "SQLite")
	t.Setenv("SWEEP_INTERVAL", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.LedgerDriver)
	assert.Equal(t, "bet_events", cfg.TopicBetEvents)
	assert.Equal(t, "9097", cfg.MetricsPort)
	assert.Empty(t, cfg.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.SweepInterval)
	assert.Equal(t, time.Minute, cfg.ResolveInterval)
	assert.InDelta(t, 0.8, cfg.MinConfidence, 1e-9)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(1000), cfg.LeagueDefaults.StartingCapital)
}

func TestLoad_IngestService(t *testing.T) {
	t.Setenv("SERVICE_NAME", "livescore-ingest")
	t.Setenv("LIVESCORE_FEED_URL", "ws://supplier.test/ws")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9098", cfg.MetricsPort)
	assert.Empty(t, cfg.HTTPPort)
	assert.Equal(t, "ws://supplier.test/ws", cfg.LiveScoreFeedURL)
	assert.Equal(t, "supplier", cfg.LiveScoreFeedSource)
	assert.Equal(t, "live_scores", cfg.TopicLiveScores)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("LEDGER_DRIVER", "mongo")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("LEDGER_DRIVER", "postgres")
	t.Setenv("MIN_CONFIDENCE", "high")
	_, err = Load()
	assert.ErrorContains(t, err, "MIN_CONFIDENCE")
}

func TestLoadLeagueDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "league.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
starting_capital: 250
scoring:
  exact: 5
  exclude_draw_diff: true
  dispute_window: 2h
  mode: ZERO_SUM
`), 0o600))

	t.Setenv("LEAGUE_DEFAULTS_FILE", path)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(250), cfg.LeagueDefaults.StartingCapital)

	s, err := cfg.LeagueDefaults.Settings()
	require.NoError(t, err)
	assert.Equal(t, int64(5), s.Exact)
	assert.Equal(t, int64(2), s.Diff)
	assert.True(t, s.ExcludeDrawDiff)
	assert.Equal(t, 2*time.Hour, s.DisputeWindow)
	assert.Equal(t, domain.ModeZeroSum, s.Mode)
}

func TestLoadLeagueDefaults_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "league.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scoring:\n  dispute_window: soon\n"), 0o600))
	_, err := LoadLeagueDefaults(path)
	assert.ErrorContains(t, err, "dispute_window")

	require.NoError(t, os.WriteFile(path, []byte("scoring:\n  winner: -2\n"), 0o600))
	_, err = LoadLeagueDefaults(path)
	assert.ErrorIs(t, err, domain.ErrInvalidLeague)

	_, err = LoadLeagueDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
