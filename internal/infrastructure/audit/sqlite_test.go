package audit_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/audit"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

func open(t *testing.T) *audit.SQLiteSink {
	t.Helper()
	sink, err := audit.Open("file:"+filepath.Join(t.TempDir(), "audit.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })
	return sink
}

func TestRecordAndReadLaunches(t *testing.T) {
	sink := open(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

	app := &types.Application{ID: "notepad", Name: "Notepad"}
	ok := &types.LaunchResult{
		Success:      true,
		AttemptID:    "a-1",
		LauncherName: "desktop",
		LaunchType:   types.LaunchNew,
		Duration:     120 * time.Millisecond,
		Instance:     &types.ApplicationInstance{InstanceID: "notepad_1_x", ProcessID: 1234},
	}
	failed := types.LaunchFailed(types.FailureProcessStart, "boom", nil, time.Second).WithAttempt("a-2", "desktop")

	require.NoError(t, sink.RecordLaunch(ctx, types.NewLaunchRecord(app, "alice", ok, at)))
	require.NoError(t, sink.RecordLaunch(ctx, types.NewLaunchRecord(app, "bob", failed, at.Add(time.Minute))))

	recs, err := sink.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a-2", recs[0].AttemptID)
	assert.False(t, recs[0].Success)
	assert.Equal(t, "LAUNCH_PROCESS_START", recs[0].ErrorCode)
	assert.Equal(t, "a-1", recs[1].AttemptID)
	assert.Equal(t, 1234, recs[1].ProcessID)
	assert.Equal(t, 120*time.Millisecond, recs[1].Duration)
	assert.True(t, recs[1].At.Equal(at))

	n, err := sink.CountFailures(ctx, "notepad")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecordTerminations(t *testing.T) {
	sink := open(t)
	ctx := context.Background()
	rec := types.TerminationRecord{
		InstanceID:    "i-1",
		ApplicationID: "notepad",
		User:          "alice",
		ProcessID:     99,
		Method:        types.ShutdownForced,
		Success:       true,
		Duration:      time.Second,
		At:            time.Now().UTC(),
	}
	require.NoError(t, sink.RecordTermination(ctx, rec))

	got, err := sink.RecentTerminations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.ShutdownForced, got[0].Method)
	assert.Equal(t, 99, got[0].ProcessID)
}
