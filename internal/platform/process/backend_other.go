//go:build !unix && !windows

package process

import "fmt"

func newPlatformBackend() (Backend, error) {
	return nil, fmt.Errorf("process backend: %w", ErrUnsupported)
}
