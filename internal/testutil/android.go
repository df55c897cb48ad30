package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/android"
)

// MockBridge is a testify mock of android.Bridge
type MockBridge struct {
	mock.Mock
}

func (m *MockBridge) Available(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *MockBridge) ExtractMetadata(ctx context.Context, apkPath string) (*android.PackageInfo, error) {
	args := m.Called(ctx, apkPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*android.PackageInfo), args.Error(1)
}

func (m *MockBridge) IsInstalled(ctx context.Context, packageName string) (bool, error) {
	args := m.Called(ctx, packageName)
	return args.Bool(0), args.Error(1)
}

func (m *MockBridge) Install(ctx context.Context, apkPath string) error {
	return m.Called(ctx, apkPath).Error(0)
}

func (m *MockBridge) Launch(ctx context.Context, packageName string) (int, error) {
	args := m.Called(ctx, packageName)
	return args.Int(0), args.Error(1)
}

func (m *MockBridge) Stop(ctx context.Context, packageName string) error {
	return m.Called(ctx, packageName).Error(0)
}

func (m *MockBridge) IsRunning(ctx context.Context, packageName string) (bool, error) {
	args := m.Called(ctx, packageName)
	return args.Bool(0), args.Error(1)
}

// NewMockBridge returns a bridge that reports itself available and every
// package installed and running unless a test overrides it.
func NewMockBridge() *MockBridge {
	m := new(MockBridge)
	m.On("Available", mock.Anything).Return(true).Maybe()
	m.On("IsInstalled", mock.Anything, mock.Anything).Return(true, nil).Maybe()
	m.On("IsRunning", mock.Anything, mock.Anything).Return(true, nil).Maybe()
	return m
}

// SetRunning replaces the IsRunning answer for every package.
func (m *MockBridge) SetRunning(ok bool, err error) {
	for _, c := range m.ExpectedCalls {
		if c.Method == "IsRunning" {
			c.Unset()
			break
		}
	}
	m.On("IsRunning", mock.Anything, mock.Anything).Return(ok, err).Maybe()
}
