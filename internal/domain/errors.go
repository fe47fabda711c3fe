package domain

import (
	"errors"
	"time"
)

var (
	// ErrSourceUnavailable wraps a failed OS metric read. The class keeps
	// ticking and consumers keep the previous sample.
	ErrSourceUnavailable = errors.New("metric source unavailable")

	// ErrCorruptConfig marks an unreadable preferences file. Defaults are
	// substituted; the corrupt file is left in place until the next save.
	ErrCorruptConfig = errors.New("corrupt preferences file")

	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// StaleInfo tells consumers a class is no longer being refreshed, instead of
// letting its readings freeze silently.
type StaleInfo struct {
	Class  MetricClass `json:"class"`
	Since  time.Time   `json:"since"`
	Reason string      `json:"reason"`
}
