package process_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/process"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/testutil"
)

func pids(infos []types.ProcessInfo) []int {
	out := make([]int, 0, len(infos))
	for _, i := range infos {
		out = append(out, i.PID)
	}
	return out
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "chrome", process.NormalizeName(`C:\Program Files\Google\Chrome\Application\CHROME.EXE`))
	assert.Equal(t, "firefox", process.NormalizeName("/usr/lib/firefox/firefox"))
	assert.Equal(t, "", process.NormalizeName("  "))
}

func TestFindProcesses(t *testing.T) {
	b := testutil.NewFakeBackend()
	w := testutil.NewFakeWindows(b)
	root := b.Spawn(testutil.FakeProcess{Name: "chrome.exe", Path: `C:\Chrome\chrome.exe`})
	child := b.Spawn(testutil.FakeProcess{Name: "chrome.exe", Path: `C:\Chrome\chrome.exe`, Parent: root})
	other := b.Spawn(testutil.FakeProcess{Name: "explorer.exe", Path: `C:\Windows\explorer.exe`})
	b.Spawn(testutil.FakeProcess{Name: "secret.exe", Denied: true})
	w.Open(other, "File Explorer")

	m := newMonitor(b, process.WithWindows(w))
	ctx := context.Background()

	assert.ElementsMatch(t, []int{root, child}, pids(m.FindProcessesByName(ctx, "Chrome")))
	assert.ElementsMatch(t, []int{other}, pids(m.FindProcessesByPartialName(ctx, "PLOR")))
	assert.ElementsMatch(t, []int{child}, pids(m.FindChildProcesses(ctx, root)))
	assert.ElementsMatch(t, []int{other}, pids(m.FindProcessesWithWindows(ctx)))
	assert.ElementsMatch(t, []int{root, child}, pids(m.FindProcessesByPattern(ctx, "chr*")))
	assert.ElementsMatch(t, []int{other}, pids(m.FindProcessesByPattern(ctx, "c:/windows/**")))
	assert.Empty(t, m.FindProcessesByName(ctx, ""))
	assert.Empty(t, m.FindProcessesByPattern(ctx, "[unclosed"))
}

func TestFindWithoutWindowsIsEmpty(t *testing.T) {
	b := testutil.NewFakeBackend()
	b.Spawn(testutil.FakeProcess{Name: "x"})
	assert.Empty(t, newMonitor(b).FindProcessesWithWindows(context.Background()))
}

func TestScanSurvivesEnumerationPanic(t *testing.T) {
	b := testutil.NewFakeBackend()
	b.Spawn(testutil.FakeProcess{Name: "x"})
	b.PanicOn = "PIDs"

	assert.NotPanics(t, func() {
		assert.Empty(t, newMonitor(b).FindProcessesByName(context.Background(), "x"))
	})
}
