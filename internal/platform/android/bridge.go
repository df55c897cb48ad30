// Package android manages applications inside the Android compatibility
// subsystem (WSA or any adb-reachable device) through adb and aapt.
package android

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
)

var (
	// ErrMetadata means the package metadata could not be read from an APK
	ErrMetadata = errors.New("apk metadata extraction failed")
	// ErrNotAPK means the file is not an Android package archive
	ErrNotAPK = errors.New("file is not an android package")
	// ErrUnavailable means no Android device or subsystem is reachable
	ErrUnavailable = errors.New("android subsystem unavailable")
	// ErrNoProcess means the package started but no process id was reported
	ErrNoProcess = errors.New("android package has no running process")
)

var packageNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)+$`)

// IsPackageName reports whether s looks like a bare Android package name
func IsPackageName(s string) bool {
	return packageNameRe.MatchString(s)
}

// PackageInfo is the metadata of an APK or installed package
type PackageInfo struct {
	PackageName        string `json:"package_name"`
	Label              string `json:"label,omitempty"`
	VersionName        string `json:"version_name,omitempty"`
	VersionCode        string `json:"version_code,omitempty"`
	LaunchableActivity string `json:"launchable_activity,omitempty"`
}

// Bridge is the Android application management capability
type Bridge interface {
	Available(ctx context.Context) bool
	// ExtractMetadata reads an APK. A nil info with nil error means the
	// archive carried no package declaration.
	ExtractMetadata(ctx context.Context, apkPath string) (*PackageInfo, error)
	IsInstalled(ctx context.Context, packageName string) (bool, error)
	Install(ctx context.Context, apkPath string) error
	Launch(ctx context.Context, packageName string) (int, error)
	Stop(ctx context.Context, packageName string) error
	IsRunning(ctx context.Context, packageName string) (bool, error)
}

// Runner executes an external command and returns its combined output
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %v: %w", name, args, err)
	}
	return out, nil
}
