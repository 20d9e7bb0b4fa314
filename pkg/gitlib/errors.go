package gitlib

import "errors"

// Configuration errors: the caller asked for something that does not exist or
// cannot be addressed.
var (
	ErrInvalidRepoPath = errors.New("invalid repository path")
	ErrInvalidHash     = errors.New("invalid object id")
	ErrBranchNotFound  = errors.New("branch not found")
	ErrNoUpstream      = errors.New("branch has no upstream")
	ErrBranchNotHead   = errors.New("branch is not checked out")
)

// Provider errors raised by the query algorithms themselves.
var (
	ErrNotFastForward = errors.New("fast forward merge not possible")
	ErrUnbornHead     = errors.New("head is unborn")
	ErrParentNotFound = errors.New("parent commit not found")
)

var configurationErrors = []error{
	ErrInvalidRepoPath,
	ErrInvalidHash,
	ErrBranchNotFound,
	ErrNoUpstream,
	ErrBranchNotHead,
}

// IsConfigurationError reports whether err was caused by a malformed repository
// path, object id, or a missing branch/upstream reference. Any other non-nil
// error coming out of this package is a provider error.
func IsConfigurationError(err error) bool {
	for _, target := range configurationErrors {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
