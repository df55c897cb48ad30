//go:build !windows

package window

func newPlatformManager() Manager {
	return Headless{}
}
