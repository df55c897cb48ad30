package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

const apkMIME = "application/vnd.android.package-archive"

// DiscoverAPKs walks dirs for Android packages and returns an android
// application for each. Files are matched by extension and confirmed by
// content sniffing. Unreadable directories are skipped.
func DiscoverAPKs(ctx context.Context, dirs []string) ([]*types.Application, error) {
	var (
		mu    sync.Mutex
		found []string
	)
	conf := fastwalk.Config{Follow: false}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		err := fastwalk.Walk(&conf, dir, func(p string, d os.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil || d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".apk") {
				return nil
			}
			if !isAPK(p) {
				return nil
			}
			mu.Lock()
			found = append(found, p)
			mu.Unlock()
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(found)
	apps := make([]*types.Application, 0, len(found))
	for _, p := range found {
		stem := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		apps = append(apps, &types.Application{
			ID:             "apk:" + strings.ToLower(stem),
			Name:           stem,
			Type:           types.TypeAndroid,
			ExecutablePath: p,
			Category:       "Android",
			MinimumRole:    types.RoleUser,
			Enabled:        true,
		})
	}
	return apps, nil
}

// isAPK sniffs p. APKs are zip archives, so a zip that mimetype cannot
// narrow further is accepted too.
func isAPK(p string) bool {
	mt, err := mimetype.DetectFile(p)
	if err != nil {
		return false
	}
	return mt.Is(apkMIME) || mt.Is("application/zip") || mt.Is("application/java-archive")
}
