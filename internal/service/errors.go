package service

import (
	"net/http"

	apperrors "github.com/spec-kit/opsdesk/pkg/util"
)

// SLA error kinds. All are terminal for the engine itself; callers decide
// whether to retry or surface them. AlreadyPaused/NotPaused are expected
// user errors (double clicks), not system failures.
var (
	// ErrNoPolicyFound means no active policy matched the entity kind,
	// priority and category, including no generic fallback. Tracking must
	// not silently proceed without a deadline.
	ErrNoPolicyFound = apperrors.NewDomainError("NO_POLICY_FOUND", "no active SLA policy matches entity", http.StatusUnprocessableEntity, nil)

	// ErrInvalidStartTime means a malformed start instant was supplied to
	// deadline calculation.
	ErrInvalidStartTime = apperrors.NewDomainError("INVALID_START_TIME", "invalid SLA start instant", http.StatusBadRequest, nil)

	// ErrAlreadyPaused means pause was called while the SLA clock is
	// already paused.
	ErrAlreadyPaused = apperrors.NewDomainError("SLA_ALREADY_PAUSED", "SLA clock is already paused", http.StatusConflict, nil)

	// ErrNotPaused means resume was called without a prior pause.
	ErrNotPaused = apperrors.NewDomainError("SLA_NOT_PAUSED", "SLA clock is not paused", http.StatusConflict, nil)

	// ErrNoDeadlineSet means refresh was called before tracking was
	// initialized; this indicates a caller ordering bug.
	ErrNoDeadlineSet = apperrors.NewDomainError("NO_DEADLINE_SET", "entity has no SLA deadline", http.StatusConflict, nil)
)
