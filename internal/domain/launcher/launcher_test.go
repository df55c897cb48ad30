package launcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/launcher"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/testutil"
)

func TestSelectionMatrix(t *testing.T) {
	e := newEnv()
	host := testutil.NewFakeHost()
	desktop := launcher.NewDesktopLauncher(e.deps, 0)
	chrome := launcher.NewChromeAppLauncher(e.deps, launcher.ChromeAppOptions{ChromePath: "chrome"})
	web := launcher.NewWebLauncher(e.deps, "firefox", 0)
	folder := launcher.NewFolderLauncher(e.deps, "explorer.exe", 0)
	webview := launcher.NewWebViewLauncher(host, nil)
	droid := launcher.NewAndroidLauncher(testutil.NewMockBridge(), 0, nil)
	all := []launcher.Launcher{desktop, chrome, web, folder, webview, droid}

	accepting := func(a *types.Application) []string {
		var names []string
		for _, l := range all {
			if l.CanLaunch(a) {
				names = append(names, l.Name())
			}
		}
		return names
	}

	chromeApp := app("gh", types.TypeChromeApp, "", "--app=https://example.com")
	assert.True(t, chrome.CanLaunch(chromeApp))
	assert.False(t, desktop.CanLaunch(chromeApp))
	assert.Equal(t, []string{"chrome_app"}, accepting(chromeApp))

	site := app("site", types.TypeWeb, "https://example.com", "")
	assert.ElementsMatch(t, []string{"web", "webview"}, accepting(site))

	chromeDesktop := app("c", types.TypeDesktop, `C:\Program Files\Google\Chrome\Application\chrome.exe`, `--app="https://mail.example.com"`)
	assert.Equal(t, []string{"chrome_app"}, accepting(chromeDesktop))

	assert.Equal(t, []string{"desktop"}, accepting(desktopApp("np", "notepad.exe")))
	assert.Equal(t, []string{"folder"}, accepting(app("tmp", types.TypeFolder, os.TempDir(), "")))
	assert.Empty(t, accepting(app("gone", types.TypeFolder, "/definitely/not/here", "")))
	assert.Equal(t, []string{"android"}, accepting(app("a", types.TypeAndroid, "com.example.testapp", "")))
	assert.Equal(t, []string{"android"}, accepting(app("b", types.TypeAndroid, `D:\apks\Game.APK`, "")))
	assert.Empty(t, accepting(app("c", types.TypeAndroid, "not a package", "")))
	assert.Empty(t, accepting(nil))
}

func TestRegistrySelectsByPriority(t *testing.T) {
	e := newEnv()
	host := testutil.NewFakeHost()
	reg := launcher.NewRegistry(
		launcher.NewWebLauncher(e.deps, "firefox", 0),
		launcher.NewWebViewLauncher(host, nil),
		launcher.NewDesktopLauncher(e.deps, 0),
	)
	assert.Equal(t, []string{"webview", "web", "desktop"}, reg.Names())

	site := app("site", types.TypeWeb, "https://example.com", "")
	l, ok := reg.Select(site)
	require.True(t, ok)
	assert.Equal(t, "webview", l.Name())

	host.Unavailable = true
	l, ok = reg.Select(site)
	require.True(t, ok)
	assert.Equal(t, "web", l.Name())

	_, ok = reg.Select(app("x", types.TypeAndroid, "com.example.x", ""))
	assert.False(t, ok)

	reg.Register(launcher.NewDesktopLauncher(e.deps, time.Second))
	assert.Len(t, reg.Names(), 3)

	got, ok := reg.ForInstance(&types.ApplicationInstance{Launcher: "desktop"})
	require.True(t, ok)
	assert.Equal(t, "desktop", got.Name())
}

type panicky struct{ launcher.Launcher }

func (panicky) Name() string                      { return "panicky" }
func (panicky) Priority() int                     { return 1000 }
func (panicky) CanLaunch(*types.Application) bool { panic("boom") }

func TestRegistrySurvivesPanickingCanLaunch(t *testing.T) {
	e := newEnv()
	reg := launcher.NewRegistry(panicky{}, launcher.NewDesktopLauncher(e.deps, 0))
	l, ok := reg.Select(desktopApp("np", "notepad.exe"))
	require.True(t, ok)
	assert.Equal(t, "desktop", l.Name())
}

func TestLaunchRejectsInvalidArguments(t *testing.T) {
	e := newEnv()
	l := launcher.NewDesktopLauncher(e.deps, 0)

	_, err := l.Launch(context.Background(), nil, "alice")
	assert.ErrorIs(t, err, launcher.ErrInvalidArgument)

	_, err = l.Launch(context.Background(), desktopApp("np", "notepad.exe"), "  ")
	assert.ErrorIs(t, err, launcher.ErrInvalidArgument)

	res, err := l.Launch(context.Background(), app("w", types.TypeWeb, "https://x.org", ""), "alice")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, types.FailureUnsupported, res.Category)
}

func TestDesktopLaunchProducesDistinctInstances(t *testing.T) {
	e := newEnv()
	l := launcher.NewDesktopLauncher(e.deps, time.Second)
	a := desktopApp("np", `C:\Windows\notepad.exe`)
	a.Arguments = `"C:\docs\my notes.txt"`

	first, err := l.Launch(context.Background(), a, "alice")
	require.NoError(t, err)
	second, err := l.Launch(context.Background(), a, "alice")
	require.NoError(t, err)

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.NotEqual(t, first.Instance.InstanceID, second.Instance.InstanceID)
	assert.Equal(t, types.StateRunning, first.Instance.State)
	assert.Equal(t, "desktop", first.Instance.Launcher)
	assert.NotNil(t, first.Instance.Window)

	calls := e.starter.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{`C:\docs\my notes.txt`}, calls[0].Args)
}

func TestDesktopLaunchStartFailure(t *testing.T) {
	e := newEnv()
	e.starter.Err = os.ErrNotExist
	l := launcher.NewDesktopLauncher(e.deps, time.Second)

	res, err := l.Launch(context.Background(), desktopApp("x", "missing.exe"), "alice")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, types.FailureProcessStart, res.Category)
	assert.ErrorIs(t, res.Err, os.ErrNotExist)
}

func TestWindowTimeoutKillsProcess(t *testing.T) {
	e := newEnv()
	e.starter.NoWindow = true
	l := launcher.NewDesktopLauncher(e.deps, 50*time.Millisecond)

	res, err := l.Launch(context.Background(), desktopApp("x", "silent.exe"), "alice")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, types.FailureWindowTimeout, res.Category)

	calls := e.starter.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 1, e.backend.Kills(calls[0].PID))
	assert.False(t, e.backend.IsAlive(calls[0].PID))
}

func TestHeadlessSkipsWindowWait(t *testing.T) {
	e := newEnv()
	e.windows.Headless = true
	e.starter.NoWindow = true
	l := launcher.NewDesktopLauncher(e.deps, time.Hour)

	res, err := l.Launch(context.Background(), desktopApp("x", "daemon"), "alice")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Nil(t, res.Instance.Window)
}

func TestDesktopSwitchToRestoresMinimizedWindow(t *testing.T) {
	e := newEnv()
	l := launcher.NewDesktopLauncher(e.deps, time.Second)
	res, err := l.Launch(context.Background(), desktopApp("np", "notepad.exe"), "alice")
	require.NoError(t, err)
	inst := res.Instance

	require.True(t, l.Minimize(context.Background(), inst))
	h := inst.Window.Handle
	assert.Equal(t, 1, e.windows.Count("minimize", h))

	assert.True(t, l.SwitchTo(context.Background(), inst))
	assert.Equal(t, 1, e.windows.Count("restore", h))
	assert.Equal(t, 1, e.windows.Count("activate", h))
}

func TestDesktopTerminate(t *testing.T) {
	e := newEnv()
	l := launcher.NewDesktopLauncher(e.deps, time.Second)
	ctx := context.Background()

	res, err := l.Launch(ctx, desktopApp("np", "notepad.exe"), "alice")
	require.NoError(t, err)
	assert.True(t, l.Terminate(ctx, res.Instance, launcher.Graceful, time.Second))
	assert.False(t, e.backend.IsAlive(res.Instance.ProcessID))
	assert.Zero(t, e.backend.Kills(res.Instance.ProcessID))

	e.starter.Template = testutil.FakeProcess{IgnoreClose: true}
	res, err = l.Launch(ctx, desktopApp("np", "notepad.exe"), "alice")
	require.NoError(t, err)
	assert.False(t, l.Terminate(ctx, res.Instance, launcher.Graceful, 20*time.Millisecond))
	assert.True(t, l.Terminate(ctx, res.Instance, launcher.Force, time.Second))
	assert.Equal(t, 1, e.backend.Kills(res.Instance.ProcessID))
}

func TestProbeReportsHungWindow(t *testing.T) {
	e := newEnv()
	l := launcher.NewDesktopLauncher(e.deps, time.Second)
	res, err := l.Launch(context.Background(), desktopApp("np", "notepad.exe"), "alice")
	require.NoError(t, err)

	p := l.Probe(context.Background(), res.Instance)
	assert.True(t, p.Alive)
	assert.True(t, p.Responding)

	e.windows.SetHung(res.Instance.Window.Handle, true)
	p = l.Probe(context.Background(), res.Instance)
	assert.True(t, p.Alive)
	assert.False(t, p.Responding)

	e.backend.Exit(res.Instance.ProcessID)
	p = l.Probe(context.Background(), res.Instance)
	assert.False(t, p.Alive)
}

func TestFindExistingSkipsDeadAndClosing(t *testing.T) {
	e := newEnv()
	l := launcher.NewDesktopLauncher(e.deps, time.Second)
	ctx := context.Background()
	a := desktopApp("np", "notepad.exe")

	dead, err := l.Launch(ctx, a, "alice")
	require.NoError(t, err)
	e.backend.Exit(dead.Instance.ProcessID)

	closing, err := l.Launch(ctx, a, "alice")
	require.NoError(t, err)
	closing.Instance.State = types.StateClosing

	live, err := l.Launch(ctx, a, "alice")
	require.NoError(t, err)

	got, ok := l.FindExistingInstance(ctx, a, []*types.ApplicationInstance{dead.Instance, closing.Instance, live.Instance})
	require.True(t, ok)
	assert.Equal(t, live.Instance.InstanceID, got.InstanceID)

	_, ok = l.FindExistingInstance(ctx, a, []*types.ApplicationInstance{dead.Instance})
	assert.False(t, ok)
}

func TestWebLaunchAndReuse(t *testing.T) {
	e := newEnv()
	l := launcher.NewWebLauncher(e.deps, "firefox", time.Second)
	ctx := context.Background()
	a := app("docs", types.TypeWeb, "https://docs.example.com", "")

	res, err := l.Launch(ctx, a, "alice")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "https://docs.example.com", res.Instance.WebURL())
	assert.Equal(t, []string{"--new-window", "https://docs.example.com"}, e.starter.Calls()[0].Args)

	got, ok := l.FindExistingInstance(ctx, a, []*types.ApplicationInstance{res.Instance})
	require.True(t, ok)
	assert.Equal(t, res.Instance.InstanceID, got.InstanceID)

	other := app("other", types.TypeWeb, "https://other.example.com", "")
	_, ok = l.FindExistingInstance(ctx, other, []*types.ApplicationInstance{res.Instance})
	assert.False(t, ok)
}

func TestFolderLaunch(t *testing.T) {
	e := newEnv()
	dir := t.TempDir()
	l := launcher.NewFolderLauncher(e.deps, "explorer.exe", time.Second)

	res, err := l.Launch(context.Background(), app("tmp", types.TypeFolder, dir, ""), "alice")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.NotEmpty(t, res.Instance.FolderPath())
	assert.Equal(t, types.TypeFolder, res.Instance.Type())
}

func TestFolderLaunchAdoptsHandedOffWindow(t *testing.T) {
	e := newEnv()
	dir := t.TempDir()
	shell := e.backend.Spawn(testutil.FakeProcess{Name: "explorer.exe", Path: `C:\Windows\explorer.exe`})
	desktop := e.windows.Open(shell, "Program Manager")
	e.starter.HandOffTo = shell
	e.starter.TitleFor = func(_ string, args []string) string { return filepath.Base(args[0]) }
	l := launcher.NewFolderLauncher(e.deps, "explorer.exe", time.Second)

	res, err := l.Launch(context.Background(), app("tmp", types.TypeFolder, dir, ""), "alice")
	require.NoError(t, err)
	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, shell, res.Instance.ProcessID)
	require.NotNil(t, res.Instance.Window)
	assert.NotEqual(t, desktop, res.Instance.Window.Handle)
	assert.Equal(t, filepath.Base(dir), res.Instance.Window.Title)
	assert.False(t, e.backend.IsAlive(e.starter.Calls()[0].PID))
}

func TestWebLaunchAdoptsHandedOffWindow(t *testing.T) {
	e := newEnv()
	browser := e.backend.Spawn(testutil.FakeProcess{Name: "msedge.exe", Path: `C:\Edge\msedge.exe`})
	existing := e.windows.Open(browser, "Inbox - Mail")
	e.starter.HandOffTo = browser
	e.starter.TitleFor = func(string, []string) string { return "Docs" }
	l := launcher.NewWebLauncher(e.deps, `C:\Edge\msedge.exe`, time.Second)

	res, err := l.Launch(context.Background(), app("docs", types.TypeWeb, "https://docs.example.com", ""), "alice")
	require.NoError(t, err)
	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, browser, res.Instance.ProcessID)
	require.NotNil(t, res.Instance.Window)
	assert.NotEqual(t, existing, res.Instance.Window.Handle)
	assert.Equal(t, "Docs", res.Instance.Window.Title)
}
