package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempSweeperRemovesOnlyStaleFiles(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	dir := t.TempDir()

	stale := filepath.Join(dir, "stale.mp4")
	fresh := filepath.Join(dir, "fresh.mp4")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	old := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	sweeper := NewTempSweeper(dir, time.Hour, log)
	removed, err := sweeper.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.DirExists(t, filepath.Join(dir, "nested"))
}

func TestTempSweeperToleratesMissingDirectory(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	sweeper := NewTempSweeper(filepath.Join(t.TempDir(), "missing"), time.Hour, log)

	removed, err := sweeper.Sweep()
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSchedulerRegistersJobs(t *testing.T) {
	env := newTestEnv(t)
	sweeper := NewTempSweeper(env.tempDir, time.Hour, env.log)

	scheduler, err := NewScheduler(env.log, sweeper, env.svc.Permissions)
	require.NoError(t, err)
	assert.Len(t, scheduler.cron.Entries(), 2)
}
