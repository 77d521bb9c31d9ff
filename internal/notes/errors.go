package notes

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the store, the remote client and the engine.
// Callers match with errors.Is; producers wrap with fmt.Errorf("...: %w").
var (
	ErrNetworkUnavailable       = errors.New("network unavailable")
	ErrWifiPolicyViolation      = errors.New("wifi-only policy requires a non-metered connection")
	ErrServer                   = errors.New("server error")
	ErrNotFound                 = errors.New("note not found")
	ErrLocalStorage             = errors.New("local storage error")
	ErrDataCorruption           = errors.New("data corruption")
	ErrConflictResolutionFailed = errors.New("conflict resolution failed")

	// ErrTransport marks connection-level failures. It wraps
	// ErrNetworkUnavailable so policy code can treat both alike.
	ErrTransport = fmt.Errorf("transport error: %w", ErrNetworkUnavailable)
)
