package launcher_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/launcher"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/testutil"
)

type staticTitle struct {
	title string
	err   error
}

func (s staticTitle) ResolveTitle(context.Context, string) (string, error) { return s.title, s.err }

func TestChromeAppLaunchAddsAppFlag(t *testing.T) {
	e := newEnv()
	e.starter.TitleFor = func(_ string, args []string) string {
		return launcher.ExpectedTitle(launcher.AppURL(args)) + " - Google Chrome"
	}
	l := launcher.NewChromeAppLauncher(e.deps, launcher.ChromeAppOptions{ChromePath: "chrome", WindowWait: time.Second})

	res, err := l.Launch(context.Background(), app("gh", types.TypeChromeApp, "https://www.github.com/", ""), "alice")
	require.NoError(t, err)
	require.True(t, res.Success, res.ErrorMessage)

	calls := e.starter.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "chrome", calls[0].Path)
	assert.Equal(t, []string{"--app=https://www.github.com/"}, calls[0].Args)

	inst := res.Instance
	assert.Equal(t, "https://www.github.com", inst.ChromeAppKey())
	assert.Equal(t, "github.com", inst.ExpectedWindowTitle())
	require.NotNil(t, inst.Window)
	assert.Contains(t, inst.Window.Title, "github.com")
}

func TestChromeAppAdoptsSharedBrowserProcess(t *testing.T) {
	e := newEnv()
	browser := e.backend.Spawn(testutil.FakeProcess{Name: "chrome.exe", Path: "chrome.exe"})
	mailWin := e.windows.Open(browser, "Inbox - mail.example.com")
	e.starter.NoWindow = true
	l := launcher.NewChromeAppLauncher(e.deps, launcher.ChromeAppOptions{ChromePath: "chrome.exe", WindowWait: time.Second})

	// The browser opens the new app window inside its existing process.
	e.windows.Open(browser, "calendar.example.com")
	res, err := l.Launch(context.Background(), app("cal", types.TypeChromeApp, "https://calendar.example.com", ""), "alice")
	require.NoError(t, err)
	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, browser, res.Instance.ProcessID)
	assert.NotEqual(t, mailWin, res.Instance.Window.Handle)

	mail := app("mail", types.TypeChromeApp, "https://mail.example.com", "")
	_, ok := l.FindExistingInstance(context.Background(), mail, []*types.ApplicationInstance{res.Instance})
	assert.False(t, ok, "a different site in the same browser is not an existing instance")

	got, ok := l.FindExistingInstance(context.Background(), app("cal2", types.TypeChromeApp, "https://calendar.example.com/", ""),
		[]*types.ApplicationInstance{res.Instance})
	require.True(t, ok)
	assert.Equal(t, res.Instance.InstanceID, got.InstanceID)
}

func TestChromeAppTitleResolver(t *testing.T) {
	e := newEnv()
	e.starter.TitleFor = func(string, []string) string { return "Example Dashboard" }
	l := launcher.NewChromeAppLauncher(e.deps, launcher.ChromeAppOptions{
		ChromePath: "chrome",
		WindowWait: time.Second,
		Resolver:   staticTitle{title: "  Example Dashboard "},
	})
	res, err := l.Launch(context.Background(), app("d", types.TypeChromeApp, "", "--app=https://dash.example.com"), "alice")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "Example Dashboard", res.Instance.ExpectedWindowTitle())

	l = launcher.NewChromeAppLauncher(e.deps, launcher.ChromeAppOptions{
		ChromePath: "chrome",
		WindowWait: time.Second,
		Resolver:   staticTitle{err: errors.New("offline")},
	})
	e.starter.TitleFor = nil
	e.starter.NoWindow = false
	res, err = l.Launch(context.Background(), app("d", types.TypeChromeApp, "", "--app=https://dash.example.com"), "alice")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "dash.example.com", res.Instance.ExpectedWindowTitle())
}

func TestChromeAppWithoutChrome(t *testing.T) {
	e := newEnv()
	l := launcher.NewChromeAppLauncher(e.deps, launcher.ChromeAppOptions{})
	res, err := l.Launch(context.Background(), app("gh", types.TypeChromeApp, "https://github.com", ""), "alice")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, types.FailureProcessStart, res.Category)
	assert.True(t, strings.Contains(res.ErrorMessage, "Chrome"))
	assert.Empty(t, e.starter.Calls())
}

func TestChromeAppProbeFollowsWindow(t *testing.T) {
	e := newEnv()
	e.starter.TitleFor = func(_ string, args []string) string { return launcher.ExpectedTitle(launcher.AppURL(args)) }
	l := launcher.NewChromeAppLauncher(e.deps, launcher.ChromeAppOptions{ChromePath: "chrome", WindowWait: time.Second})
	res, err := l.Launch(context.Background(), app("gh", types.TypeChromeApp, "https://github.com", ""), "alice")
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.True(t, l.Probe(context.Background(), res.Instance).Alive)
	e.backend.Exit(res.Instance.ProcessID)
	assert.False(t, l.Probe(context.Background(), res.Instance).Alive)
}
