package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Re4zOon/repo-maintainer/config"
	"github.com/Re4zOon/repo-maintainer/internal/ledger"
	"github.com/Re4zOon/repo-maintainer/internal/model"
	"github.com/Re4zOon/repo-maintainer/internal/platform/platformtest"
)

func TestNewRegistersSubcommands(t *testing.T) {
	root := New()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["version"])
}

func TestNewOptionsDefaults(t *testing.T) {
	opts := NewOptions()
	assert.Equal(t, "config.yaml", opts.ConfigPath)
	assert.False(t, opts.DryRun)

	opts = NewOptions(WithConfigPath("/etc/rm.yaml"), WithDryRun(true), WithArchive(true), WithVerbosity(2))
	assert.Equal(t, "/etc/rm.yaml", opts.ConfigPath)
	assert.True(t, opts.DryRun)
	assert.True(t, opts.Archive)
	assert.Equal(t, 2, opts.Verbosity)
}

func TestRootFailsOnMissingConfig(t *testing.T) {
	root := New()
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")})
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))

	err := root.Execute()
	require.Error(t, err)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Platform:      config.PlatformGitLab,
		Projects:      []string{"42"},
		StaleDays:     30,
		CleanupWeeks:  4,
		MaxWorkers:    2,
		FallbackEmail: "fallback@example.com",

		NotificationFrequencyDays: 7,
		EnableComments:            true,
		CommentInactivityDays:     14,
		CommentFrequencyDays:      7,

		DatabasePath:  filepath.Join(dir, "history.db"),
		ArchiveFolder: filepath.Join(dir, "archives"),
		OptOutMarker:  "#skip-auto-archive",
	}
}

func TestRunPipelineDryRun(t *testing.T) {
	now := time.Now().UTC()
	fake := &platformtest.Fake{
		RequestsFn: func(_ context.Context, _ string) ([]model.StaleRequest, error) {
			return []model.StaleRequest{{
				ProjectID:    "42",
				ProjectName:  "group/app",
				Number:       7,
				Title:        "Old refactor",
				SourceBranch: "refactor",
				AuthorEmail:  "dev@example.com",
				LastActivity: now.AddDate(0, 0, -60),
			}}, nil
		},
	}

	cfg := testConfig(t)
	store, err := ledger.Open(cfg.DatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var out bytes.Buffer
	opts := NewOptions(WithDryRun(true))
	runPipeline(context.Background(), cfg, fake, store, opts, &out)

	report := out.String()
	assert.Contains(t, report, "Notification pass")
	assert.Contains(t, report, "stale merge requests: 1")
	assert.Contains(t, report, "Reminder-comment pass")
	// Auto-archive is off and --archive not passed.
	assert.NotContains(t, report, "Archive pass")
	// Dry run never touches the platform's write operations.
	assert.Equal(t, 0, fake.Calls("PostComment"))
	assert.Equal(t, 0, fake.Calls("DeleteBranch"))

	// Ledger untouched in dry-run: no notification rows.
	branches, requests, err := store.CountByType(context.Background())
	require.NoError(t, err)
	assert.Zero(t, branches+requests)
}

func TestRunPipelineArchiveFlag(t *testing.T) {
	cfg := testConfig(t)
	store, err := ledger.Open(cfg.DatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var out bytes.Buffer
	opts := NewOptions(WithDryRun(true), WithArchive(true))
	runPipeline(context.Background(), cfg, &platformtest.Fake{}, store, opts, &out)

	assert.Contains(t, out.String(), "Archive pass")
}

func TestMain(m *testing.M) {
	// Escape codes would break the substring assertions above.
	color.NoColor = true
	os.Exit(m.Run())
}
