package engine

import (
	"context"
	"errors"
	"os"

	"github.com/jamesainslie/tidymac/pkg/tidymac/profile"
	"github.com/jamesainslie/tidymac/pkg/tidymac/session"
	"github.com/jamesainslie/tidymac/pkg/tidymac/staging"
)

// Error kinds for the JSON surface. Kinds are a vocabulary, not a
// type hierarchy.
const (
	KindSafetyRefused      = "safety_refused"
	KindPathNotFound       = "path_not_found"
	KindPermissionDenied   = "permission_denied"
	KindIOError            = "io_error"
	KindInvalidProfile     = "invalid_profile"
	KindInvalidManifest    = "invalid_manifest"
	KindSessionLocked      = "session_locked"
	KindSessionExpired     = "session_expired"
	KindVerificationFailed = "verification_failed"
	KindCancelled          = "cancelled"
	KindBudgetExceeded     = "budget_exceeded"
)

// ErrPartial marks an operation that completed with per-file errors.
var ErrPartial = errors.New("completed with errors")

// ErrorKind maps an error to its kind string; empty when the error
// has no kind in the vocabulary.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, profile.ErrInvalidProfile), errors.Is(err, profile.ErrUnknownProfile):
		return KindInvalidProfile
	case errors.Is(err, session.ErrInvalidManifest), errors.Is(err, session.ErrNotFound):
		return KindInvalidManifest
	case errors.Is(err, session.ErrExpired):
		return KindSessionExpired
	case errors.Is(err, session.ErrLocked):
		return KindSessionLocked
	case errors.Is(err, staging.ErrVerificationFailed):
		return KindVerificationFailed
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return KindBudgetExceeded
	case os.IsNotExist(err):
		return KindPathNotFound
	case os.IsPermission(err):
		return KindPermissionDenied
	case errors.Is(err, session.ErrAlreadyRestored), errors.Is(err, session.ErrNothingStaged),
		errors.Is(err, ErrPartial):
		return ""
	default:
		return KindIOError
	}
}

// Exit codes for the CLI collaborator.
const (
	ExitOK             = 0
	ExitPartialFailure = 1
	ExitNoOp           = 2
	ExitUsage          = 64
	ExitSafetyRefused  = 73
	ExitIOError        = 74
)

// ExitCode maps an operation error to the CLI exit-code vocabulary.
func ExitCode(err error) int {
	switch ErrorKind(err) {
	case "":
		switch {
		case err == nil:
			return ExitOK
		case errors.Is(err, ErrPartial):
			return ExitPartialFailure
		default:
			return ExitNoOp
		}
	case KindSafetyRefused:
		return ExitSafetyRefused
	case KindInvalidProfile:
		return ExitUsage
	case KindCancelled, KindSessionLocked, KindSessionExpired, KindInvalidManifest:
		return ExitPartialFailure
	default:
		return ExitIOError
	}
}
