package android

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/resilience"
)

// Config locates the tools and the target device
type Config struct {
	ADBPath  string
	AAPTPath string
	// Serial selects the device; WSA listens on 127.0.0.1:58526.
	Serial string
	// PIDAttempts and PIDInterval bound the wait for a launched package's pid.
	PIDAttempts int
	PIDInterval time.Duration
}

// ADBBridge implements Bridge over adb and aapt
type ADBBridge struct {
	cfg     Config
	runner  Runner
	breaker *resilience.Breaker
	log     *logging.Logger
}

// NewADBBridge creates a bridge. runner and breaker may be nil.
func NewADBBridge(cfg Config, runner Runner, breaker *resilience.Breaker, log *logging.Logger) *ADBBridge {
	if cfg.ADBPath == "" {
		cfg.ADBPath = "adb"
	}
	if cfg.AAPTPath == "" {
		cfg.AAPTPath = "aapt"
	}
	if cfg.PIDAttempts <= 0 {
		cfg.PIDAttempts = 10
	}
	if cfg.PIDInterval <= 0 {
		cfg.PIDInterval = 300 * time.Millisecond
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &ADBBridge{cfg: cfg, runner: runner, breaker: breaker, log: logging.OrNop(log).Named("android")}
}

func (b *ADBBridge) adb(ctx context.Context, args ...string) (string, error) {
	if b.cfg.Serial != "" {
		args = append([]string{"-s", b.cfg.Serial}, args...)
	}
	out, err := resilience.Call(ctx, b.breaker, func(ctx context.Context) ([]byte, error) {
		return b.runner.Run(ctx, b.cfg.ADBPath, args...)
	})
	if resilience.IsRejection(err) {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return strings.TrimSpace(string(out)), err
}

func (b *ADBBridge) Available(ctx context.Context) bool {
	out, err := b.adb(ctx, "get-state")
	return err == nil && out == "device"
}

var (
	packageLineRe  = regexp.MustCompile(`package: name='([^']+)'(?: versionCode='([^']*)')?(?: versionName='([^']*)')?`)
	labelLineRe    = regexp.MustCompile(`(?m)^application-label:'([^']*)'`)
	launchableRe   = regexp.MustCompile(`(?m)^launchable-activity: name='([^']+)'`)
	apkMIMEAliases = []string{"application/vnd.android.package-archive", "application/jar", "application/zip"}
)

// ExtractMetadata verifies the file is an APK and reads `aapt dump badging`.
func (b *ADBBridge) ExtractMetadata(ctx context.Context, apkPath string) (*PackageInfo, error) {
	mt, err := mimetype.DetectFile(apkPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	if !mimetype.EqualsAny(mt.String(), apkMIMEAliases...) {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotAPK, apkPath, mt.String())
	}

	out, err := b.runner.Run(ctx, b.cfg.AAPTPath, "dump", "badging", apkPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	return ParseBadging(string(out)), nil
}

// ParseBadging parses aapt badging output. Returns nil when no package line
// is present.
func ParseBadging(out string) *PackageInfo {
	m := packageLineRe.FindStringSubmatch(out)
	if m == nil {
		return nil
	}
	info := &PackageInfo{PackageName: m[1], VersionCode: m[2], VersionName: m[3]}
	if l := labelLineRe.FindStringSubmatch(out); l != nil {
		info.Label = l[1]
	}
	if a := launchableRe.FindStringSubmatch(out); a != nil {
		info.LaunchableActivity = a[1]
	}
	return info
}

func (b *ADBBridge) IsInstalled(ctx context.Context, packageName string) (bool, error) {
	out, err := b.adb(ctx, "shell", "pm", "list", "packages", packageName)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "package:"+packageName {
			return true, nil
		}
	}
	return false, nil
}

func (b *ADBBridge) Install(ctx context.Context, apkPath string) error {
	out, err := b.adb(ctx, "install", "-r", apkPath)
	if err != nil {
		return err
	}
	if !strings.Contains(out, "Success") {
		return fmt.Errorf("adb install %s: %s", apkPath, out)
	}
	return nil
}

// Launch starts the package's launcher activity and waits for its pid.
func (b *ADBBridge) Launch(ctx context.Context, packageName string) (int, error) {
	if _, err := b.adb(ctx, "shell", "monkey", "-p", packageName, "-c", "android.intent.category.LAUNCHER", "1"); err != nil {
		return 0, err
	}

	ticker := time.NewTicker(b.cfg.PIDInterval)
	defer ticker.Stop()
	for attempt := 0; attempt < b.cfg.PIDAttempts; attempt++ {
		if pid, err := b.pid(ctx, packageName); err == nil && pid > 0 {
			b.log.Debug("android package started", zap.String("package", packageName), zap.Int("pid", pid))
			return pid, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNoProcess, packageName)
}

func (b *ADBBridge) Stop(ctx context.Context, packageName string) error {
	_, err := b.adb(ctx, "shell", "am", "force-stop", packageName)
	return err
}

// IsRunning reports whether the package has a process. An error means the
// device could not be asked, not that the package is gone.
func (b *ADBBridge) IsRunning(ctx context.Context, packageName string) (bool, error) {
	pid, err := b.pid(ctx, packageName)
	if errors.Is(err, ErrNoProcess) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return pid > 0, nil
}

func (b *ADBBridge) pid(ctx context.Context, packageName string) (int, error) {
	// pidof exits non-zero when nothing matches; keep that off the breaker.
	out, err := b.adb(ctx, "shell", "pidof "+packageName+" || true")
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return 0, ErrNoProcess
	}
	return strconv.Atoi(fields[0])
}
