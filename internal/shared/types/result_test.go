package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLaunchFailedFillsCodeAndMessage(t *testing.T) {
	res := LaunchFailed(FailureMetadataExtraction, "", errors.New("metadata extraction failed"), time.Second)

	assert.False(t, res.Success)
	assert.Equal(t, "LAUNCH_METADATA_EXTRACTION", res.ErrorCode)
	assert.Equal(t, "metadata extraction failed", res.ErrorMessage)
	assert.Nil(t, res.Instance)
}

func TestLaunchUnsupportedMessage(t *testing.T) {
	res := LaunchUnsupported(&Application{Name: "Paint", Type: TypeDesktop}, "web")
	assert.Equal(t, FailureUnsupported, res.Category)
	assert.Contains(t, res.ErrorMessage, "cannot launch")
}

func TestWithAttemptCopies(t *testing.T) {
	orig := LaunchSucceeded(&ApplicationInstance{InstanceID: "x"}, time.Millisecond)
	stamped := orig.WithAttempt("attempt-1", "desktop")

	assert.Empty(t, orig.AttemptID)
	assert.Equal(t, "attempt-1", stamped.AttemptID)
	assert.Equal(t, "desktop", stamped.LauncherName)
	assert.Equal(t, LaunchNew, stamped.LaunchType)
}

func TestShutdownBuilderCounts(t *testing.T) {
	b := NewShutdownBuilder(4)
	b.Record(ApplicationShutdownInfo{InstanceID: "a", Method: ShutdownGraceful, Success: true})
	b.Record(ApplicationShutdownInfo{InstanceID: "b", Method: ShutdownAlreadyExited, Success: true})
	b.Record(ApplicationShutdownInfo{InstanceID: "c", Method: ShutdownForced, Success: true})
	b.Record(ApplicationShutdownInfo{InstanceID: "d", ApplicationName: "Stuck", Method: ShutdownFailed, Error: "still alive"})
	b.AddError("monitor stopped late")

	res := b.Build(time.Second)

	assert.Equal(t, 4, res.TotalApplications)
	assert.Equal(t, 2, res.GracefullyClosed)
	assert.Equal(t, 1, res.ForceClosed)
	assert.Equal(t, 1, res.FailedToClose)
	assert.Len(t, res.Errors, 2)
	assert.False(t, res.Succeeded())
}
