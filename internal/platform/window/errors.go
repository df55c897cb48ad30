package window

import "errors"

// ErrNoWindow means no matching window exists
var ErrNoWindow = errors.New("window not found")
