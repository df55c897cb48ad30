package launcher_test

import (
	"time"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/launcher"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/process"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/testutil"
)

type env struct {
	backend *testutil.FakeBackend
	windows *testutil.FakeWindows
	starter *testutil.FakeStarter
	monitor *process.Monitor
	deps    launcher.Deps
}

func newEnv() *env {
	b := testutil.NewFakeBackend()
	w := testutil.NewFakeWindows(b)
	s := &testutil.FakeStarter{Backend: b, Windows: w}
	m := process.NewMonitor(b, process.WithWindows(w), process.WithPollInterval(time.Millisecond))
	return &env{
		backend: b,
		windows: w,
		starter: s,
		monitor: m,
		deps:    launcher.Deps{Monitor: m, Windows: w, Starter: s},
	}
}

func desktopApp(id, path string) *types.Application {
	return &types.Application{ID: id, Name: id, Type: types.TypeDesktop, ExecutablePath: path, Enabled: true}
}

func app(id string, typ types.ApplicationType, path, args string) *types.Application {
	return &types.Application{ID: id, Name: id, Type: typ, ExecutablePath: path, Arguments: args, Enabled: true}
}

var testEpoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
