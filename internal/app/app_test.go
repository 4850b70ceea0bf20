package app

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/timerboard/internal/config"
)

func defaultConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestNewWiresServices(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a, err := New(ctx, defaultConfig(t), nil, prometheus.NewRegistry())
	require.NoError(t, err)
	defer a.Close(ctx)

	require.NotNil(t, a.Board())
	require.NotNil(t, a.Store())
	require.NotNil(t, a.Logger())
	require.Empty(t, a.Board().List())
}

func TestNewCreatesStandardTimers(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig(t)
	cfg.StandardTimers = map[string]config.TimerConfig{
		"launch": {
			Start:          time.Now().Add(-time.Minute).UTC().Format(time.RFC3339),
			End:            time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
			OverdueAllowed: true,
		},
	}

	ctx := context.Background()
	a, err := New(ctx, cfg, nil, prometheus.NewRegistry())
	require.NoError(t, err)
	defer a.Close(ctx)

	infos := a.Board().List()
	require.Len(t, infos, 1)
	require.Equal(t, "launch", infos[0].Name)

	state, err := a.Board().Snapshot(infos[0].ID)
	require.NoError(t, err)
	require.Equal(t, infos[0].ID, state.TimerID)

	// Removal must clear the sink-side record too, not just the registry.
	require.Eventually(t, func() bool {
		_, err := a.Store().Latest(infos[0].ID)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	require.NoError(t, a.Board().Remove(infos[0].ID))
	_, err = a.Store().Latest(infos[0].ID)
	require.Error(t, err)
}

func TestNewRejectsInvalidStandardTimer(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig(t)
	cfg.StandardTimers = map[string]config.TimerConfig{
		"broken": {Start: "2025-06-01T12:00:00Z", End: "not-a-timestamp"},
	}

	_, err := New(context.Background(), cfg, nil, prometheus.NewRegistry())
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken")
}
