package android

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/resilience"
)

const badging = `package: name='com.example.notes' versionCode='42' versionName='4.2.0' platformBuildVersionName='14'
sdkVersion:'24'
application-label:'Notes'
application-label-en:'Notes'
launchable-activity: name='com.example.notes.MainActivity'  label='Notes' icon=''
`

type scriptedRunner struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   []string
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{replies: map[string]string{}, errs: map[string]error{}}
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	key := strings.TrimSpace(filepath.Base(name) + " " + strings.Join(args, " "))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, key)
	return []byte(r.replies[key]), r.errs[key]
}

func (r *scriptedRunner) called(prefix string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func writeAPK(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.apk")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, name := range []string{"AndroidManifest.xml", "classes.dex", "resources.arsc"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("placeholder"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestParseBadging(t *testing.T) {
	info := ParseBadging(badging)
	require.NotNil(t, info)
	assert.Equal(t, "com.example.notes", info.PackageName)
	assert.Equal(t, "42", info.VersionCode)
	assert.Equal(t, "4.2.0", info.VersionName)
	assert.Equal(t, "Notes", info.Label)
	assert.Equal(t, "com.example.notes.MainActivity", info.LaunchableActivity)

	assert.Nil(t, ParseBadging("ERROR: dump failed because no AndroidManifest.xml found"))
}

func TestIsPackageName(t *testing.T) {
	assert.True(t, IsPackageName("com.example.testapp"))
	assert.False(t, IsPackageName("notes.apk.bak/x"))
	assert.False(t, IsPackageName("single"))
	assert.False(t, IsPackageName(`C:\apps\notes.apk`))
}

func TestExtractMetadata(t *testing.T) {
	apk := writeAPK(t)
	runner := newScriptedRunner()
	runner.replies["aapt dump badging "+apk] = badging

	b := NewADBBridge(Config{}, runner, nil, nil)
	info, err := b.ExtractMetadata(context.Background(), apk)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "com.example.notes", info.PackageName)
}

func TestExtractMetadataRejectsNonArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.apk")
	require.NoError(t, os.WriteFile(path, []byte("just text, not a zip"), 0o644))

	b := NewADBBridge(Config{}, newScriptedRunner(), nil, nil)
	_, err := b.ExtractMetadata(context.Background(), path)
	assert.ErrorIs(t, err, ErrNotAPK)
}

func TestExtractMetadataMissingFile(t *testing.T) {
	b := NewADBBridge(Config{}, newScriptedRunner(), nil, nil)
	_, err := b.ExtractMetadata(context.Background(), filepath.Join(t.TempDir(), "missing.apk"))
	assert.ErrorIs(t, err, ErrMetadata)
}

func TestLaunchWaitsForPID(t *testing.T) {
	runner := newScriptedRunner()
	runner.replies["adb -s 127.0.0.1:58526 shell pidof com.example.notes || true"] = "31337\n"

	b := NewADBBridge(Config{Serial: "127.0.0.1:58526", PIDInterval: time.Millisecond}, runner, nil, nil)
	pid, err := b.Launch(context.Background(), "com.example.notes")
	require.NoError(t, err)
	assert.Equal(t, 31337, pid)
	assert.True(t, runner.called("adb -s 127.0.0.1:58526 shell monkey -p com.example.notes"))
}

func TestLaunchWithoutPID(t *testing.T) {
	b := NewADBBridge(Config{PIDAttempts: 2, PIDInterval: time.Millisecond}, newScriptedRunner(), nil, nil)
	_, err := b.Launch(context.Background(), "com.example.notes")
	assert.ErrorIs(t, err, ErrNoProcess)
}

func TestStopAndInstalled(t *testing.T) {
	runner := newScriptedRunner()
	runner.replies["adb shell pm list packages com.example.notes"] = "package:com.example.notes\npackage:com.example.notes.beta"

	b := NewADBBridge(Config{}, runner, nil, nil)
	installed, err := b.IsInstalled(context.Background(), "com.example.notes")
	require.NoError(t, err)
	assert.True(t, installed)

	require.NoError(t, b.Stop(context.Background(), "com.example.notes"))
	assert.True(t, runner.called("adb shell am force-stop com.example.notes"))
}

func TestBreakerOpensOnRepeatedADBFailures(t *testing.T) {
	runner := newScriptedRunner()
	runner.errs["adb get-state"] = errors.New("exit status 1")
	breaker := resilience.New("android", resilience.Settings{
		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 2 },
	})

	b := NewADBBridge(Config{}, runner, breaker, nil)
	assert.False(t, b.Available(context.Background()))
	assert.False(t, b.Available(context.Background()))

	err := b.Stop(context.Background(), "com.example.notes")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, runner.called("adb shell am force-stop"))
}

func TestIsRunningSeparatesGoneFromUnreachable(t *testing.T) {
	const query = "adb shell pidof com.example.notes || true"
	runner := newScriptedRunner()
	b := NewADBBridge(Config{}, runner, nil, nil)
	ctx := context.Background()

	runner.replies[query] = "4242\n"
	ok, err := b.IsRunning(ctx, "com.example.notes")
	require.NoError(t, err)
	assert.True(t, ok)

	runner.replies[query] = ""
	ok, err = b.IsRunning(ctx, "com.example.notes")
	require.NoError(t, err)
	assert.False(t, ok)

	runner.errs[query] = errors.New("error: device offline")
	_, err = b.IsRunning(ctx, "com.example.notes")
	assert.Error(t, err)
}
