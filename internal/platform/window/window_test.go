package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeadlessReportsUnsupported(t *testing.T) {
	var m Manager = Headless{}

	assert.False(t, m.Supported())
	_, err := m.MainWindow(42)
	assert.ErrorIs(t, err, ErrNoWindow)
	_, err = m.FindByTitle("Calculator", nil)
	assert.ErrorIs(t, err, ErrNoWindow)
	assert.False(t, m.Activate(1))
	assert.False(t, m.Minimize(1))
	assert.False(t, m.Restore(1))
	assert.False(t, m.RequestClose(1))
	assert.False(t, m.IsHung(1))
}
