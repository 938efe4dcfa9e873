package msgsource

import "errors"

var (
	// ErrBundleNotFound is returned when no bundle exists for a basename and
	// locale. It is recoverable and never cached so a bundle that appears
	// later, or a differently configured fallback source, is picked up on a
	// subsequent call.
	ErrBundleNotFound = errors.New("msgsource: bundle not found")

	// ErrMessageNotFound is returned when every consulted bundle lacks the
	// requested key. Like ErrBundleNotFound it is recoverable and never
	// cached.
	ErrMessageNotFound = errors.New("msgsource: message not found")
)

// IsNotFound reports whether err is either of the recoverable absence
// sentinels. Callers chaining resolvers use it to decide whether to
// escalate to a parent source.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBundleNotFound) || errors.Is(err, ErrMessageNotFound)
}
