package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("CINDY_MASTODON_HOST", "social.example.org")
	t.Setenv("CINDY_MASTODON_ACCESS_TOKEN", "token")
}

func TestLoad_DefaultsApply(t *testing.T) {
	setCredentials(t)

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 60*time.Second, cfg.Interval())
	require.Equal(t, 5*time.Second, cfg.StartupDelay())
	require.Equal(t, 50, cfg.Redirect.Limit)
	require.Equal(t, "lastRun", cfg.LastRun.File)
	require.Equal(t, "Europe/Berlin", cfg.Timezone)
}

func TestLoad_MissingHostIsFatal(t *testing.T) {
	t.Setenv("CINDY_MASTODON_HOST", "")
	t.Setenv("CINDY_MASTODON_ACCESS_TOKEN", "token")

	_, err := Load("")
	require.ErrorContains(t, err, "mastodon.host")
}

func TestLoad_MissingTokenIsFatal(t *testing.T) {
	t.Setenv("CINDY_MASTODON_HOST", "social.example.org")
	t.Setenv("CINDY_MASTODON_ACCESS_TOKEN", "")

	_, err := Load("")
	require.ErrorContains(t, err, "mastodon.access_token")
}

func TestLoad_BadTimezoneIsRejected(t *testing.T) {
	setCredentials(t)
	t.Setenv("CINDY_TIMEZONE", "Nowhere/Special")

	_, err := Load("")
	require.ErrorContains(t, err, "timezone")
}

func TestLoadLenient_SkipsValidation(t *testing.T) {
	t.Setenv("CINDY_SERVER_PORT", "9090")

	cfg, err := LoadLenient("")
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
}

func TestSources_ParsesCommaSeparatedList(t *testing.T) {
	setCredentials(t)
	t.Setenv("CINDY_CALENDAR_SOURCES", " https://a.example.org/cal.ics , https://b.example.org/cal.ics ,")

	cfg, err := Load("")
	require.NoError(t, err)

	sources, err := cfg.Sources()
	require.NoError(t, err)
	require.Len(t, sources, 2)
	require.Equal(t, "https://a.example.org/cal.ics", sources[0].URI)
	require.Equal(t, "https://b.example.org/cal.ics", sources[1].URI)
}

func TestSources_EmptyListIsAllowed(t *testing.T) {
	setCredentials(t)

	cfg, err := Load("")
	require.NoError(t, err)

	sources, err := cfg.Sources()
	require.NoError(t, err)
	require.Empty(t, sources)
}
