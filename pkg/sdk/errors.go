package mindseye

import (
	"errors"

	"github.com/kailas-cloud/mindseye/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidTimestamp = domain.ErrInvalidTimestamp
	ErrMalformedInput   = domain.ErrMalformedInput
	ErrNotLoaded        = domain.ErrNotLoaded
)

// ErrNoSource is returned by Refresh when the client was built without WithFile or WithRedis.
var ErrNoSource = errors.New("mindseye: no event source configured")
