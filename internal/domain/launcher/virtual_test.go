package launcher_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/launcher"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/android"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/testutil"
)

func TestWebViewSessions(t *testing.T) {
	host := testutil.NewFakeHost()
	l := launcher.NewWebViewLauncher(host, nil)
	ctx := context.Background()
	a := app("docs", types.TypeWeb, "https://docs.example.com", "")

	first, err := l.Launch(ctx, a, "alice")
	require.NoError(t, err)
	second, err := l.Launch(ctx, a, "alice")
	require.NoError(t, err)
	require.True(t, first.Success)
	require.True(t, second.Success)

	for _, r := range []*types.LaunchResult{first, second} {
		assert.True(t, r.Instance.IsVirtual)
		assert.Equal(t, types.StateRunning, r.Instance.State)
		assert.Greater(t, r.Instance.ProcessID, 900_000_000)
		assert.NotEmpty(t, r.Instance.SessionID())
	}
	assert.NotEqual(t, first.Instance.ProcessID, second.Instance.ProcessID)
	assert.NotEqual(t, first.Instance.InstanceID, second.Instance.InstanceID)
	assert.NotEqual(t, first.Instance.SessionID(), second.Instance.SessionID())

	assert.True(t, l.SwitchTo(ctx, first.Instance))
	assert.Equal(t, []string{first.Instance.SessionID()}, host.Focused())

	got, ok := l.FindExistingInstance(ctx, a, []*types.ApplicationInstance{first.Instance})
	require.True(t, ok)
	assert.Equal(t, first.Instance.InstanceID, got.InstanceID)

	host.Drop(first.Instance.SessionID())
	assert.False(t, l.Probe(ctx, first.Instance).Alive)
	_, ok = l.FindExistingInstance(ctx, a, []*types.ApplicationInstance{first.Instance})
	assert.False(t, ok)

	assert.True(t, l.Terminate(ctx, second.Instance, launcher.Graceful, 0))
	assert.False(t, host.IsOpen(second.Instance.SessionID()))
}

func TestWebViewUnknownSession(t *testing.T) {
	l := launcher.NewWebViewLauncher(testutil.NewFakeHost(), nil)
	ctx := context.Background()
	stranger := types.NewInstance(app("x", types.TypeWeb, "https://x.org", ""), "alice", 900_000_123,
		types.WebInstanceData{URL: "https://x.org", SessionID: "nope", Embedded: true}, testEpoch)

	assert.False(t, l.SwitchTo(ctx, stranger))
	assert.False(t, l.Terminate(ctx, stranger, launcher.Force, 0))
	assert.False(t, l.SwitchTo(ctx, nil))
}

func TestWebViewHostFailure(t *testing.T) {
	host := testutil.NewFakeHost()
	host.OpenErr = errors.New("renderer crashed")
	l := launcher.NewWebViewLauncher(host, nil)

	res, err := l.Launch(context.Background(), app("x", types.TypeWeb, "https://x.org", ""), "alice")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, types.FailureBridge, res.Category)

	host.Unavailable = true
	assert.False(t, l.CanLaunch(app("x", types.TypeWeb, "https://x.org", "")))
	assert.False(t, launcher.NewWebViewLauncher(nil, nil).CanLaunch(app("x", types.TypeWeb, "https://x.org", "")))
}

func TestAndroidLaunchByPackageName(t *testing.T) {
	bridge := testutil.NewMockBridge()
	bridge.On("Launch", mock.Anything, "com.example.testapp").Return(4242, nil)
	l := launcher.NewAndroidLauncher(bridge, 0, nil)

	res, err := l.Launch(context.Background(), app("t", types.TypeAndroid, "com.example.testapp", ""), "alice")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotNil(t, res.Instance)
	assert.Equal(t, types.StateRunning, res.Instance.State)
	assert.Equal(t, 4242, res.Instance.ProcessID)
	assert.True(t, res.Instance.IsVirtual)
	assert.Equal(t, "com.example.testapp", res.Instance.PackageName())
	bridge.AssertNotCalled(t, "ExtractMetadata", mock.Anything, mock.Anything)
}

func TestAndroidMetadataFailureNeverLaunches(t *testing.T) {
	bridge := testutil.NewMockBridge()
	bridge.On("ExtractMetadata", mock.Anything, `D:\apks\broken.apk`).Return(nil, nil)
	l := launcher.NewAndroidLauncher(bridge, 0, nil)

	res, err := l.Launch(context.Background(), app("b", types.TypeAndroid, `D:\apks\broken.apk`, ""), "alice")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, types.FailureMetadataExtraction, res.Category)
	assert.Contains(t, res.ErrorMessage, "metadata")
	bridge.AssertNotCalled(t, "Launch", mock.Anything, mock.Anything)
}

func TestAndroidInstallsMissingAPK(t *testing.T) {
	bridge := new(testutil.MockBridge)
	apk := "/srv/apks/game.apk"
	bridge.On("ExtractMetadata", mock.Anything, apk).
		Return(&android.PackageInfo{PackageName: "com.example.game", Label: "Game", VersionName: "1.2"}, nil)
	bridge.On("Available", mock.Anything).Return(true)
	bridge.On("IsInstalled", mock.Anything, "com.example.game").Return(false, nil)
	bridge.On("Install", mock.Anything, apk).Return(nil).Once()
	bridge.On("Launch", mock.Anything, "com.example.game").Return(0, nil)
	l := launcher.NewAndroidLauncher(bridge, 0, nil)

	res, err := l.Launch(context.Background(), app("g", types.TypeAndroid, apk, ""), "alice")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Positive(t, res.Instance.ProcessID)

	data, ok := res.Instance.Data.(types.AndroidInstanceData)
	require.True(t, ok)
	assert.Equal(t, "Game", data.Label)
	assert.Equal(t, apk, data.APKPath)
	bridge.AssertExpectations(t)
}

func TestAndroidUnavailable(t *testing.T) {
	bridge := new(testutil.MockBridge)
	bridge.On("Available", mock.Anything).Return(false)
	l := launcher.NewAndroidLauncher(bridge, 0, nil)

	res, err := l.Launch(context.Background(), app("t", types.TypeAndroid, "com.example.testapp", ""), "alice")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, types.FailureBridge, res.Category)
	assert.ErrorIs(t, res.Err, android.ErrUnavailable)
	bridge.AssertNotCalled(t, "Launch", mock.Anything, mock.Anything)
}

func TestAndroidTerminateStopsPackage(t *testing.T) {
	bridge := testutil.NewMockBridge()
	bridge.On("Launch", mock.Anything, "com.example.testapp").Return(77, nil)
	bridge.On("Stop", mock.Anything, "com.example.testapp").Return(nil)
	l := launcher.NewAndroidLauncher(bridge, 0, nil)
	ctx := context.Background()

	res, err := l.Launch(ctx, app("t", types.TypeAndroid, "com.example.testapp", ""), "alice")
	require.NoError(t, err)
	assert.True(t, l.Probe(ctx, res.Instance).Alive)
	assert.True(t, l.Terminate(ctx, res.Instance, launcher.Graceful, 0))
	bridge.AssertCalled(t, "Stop", mock.Anything, "com.example.testapp")
}
