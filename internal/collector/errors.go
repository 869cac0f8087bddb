package collector

import (
	"errors"
	"fmt"
)

// ErrLimitExceeded is returned by the HTTP boundary when a process list
// request asks for more than MaxProcessLimit rows. The check happens before
// any OS sampling.
var ErrLimitExceeded = errors.New("limit cannot exceed 50")

// MaxProcessLimit caps TopProcesses requests.
const MaxProcessLimit = 50

// InvalidPathError reports a disk path that could not be statted.
type InvalidPathError struct {
	Path string
	Err  error
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid disk path: %s", e.Path)
}

func (e *InvalidPathError) Unwrap() error { return e.Err }

// SourceUnavailableError reports an OS counter family that the current
// platform does not support. Zeros are never substituted for it.
type SourceUnavailableError struct {
	Family string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("%s source unavailable: %v", e.Family, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }
