package source

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrSourceUnavailable covers transport and auth failures. Callers may retry.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrNotConfigured is a SourceUnavailable caused by a missing credential.
	ErrNotConfigured = errors.WithMessage(ErrSourceUnavailable, "source credential not configured")
	// ErrNotFound means the catalog has no entry for the requested id.
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedSource means the source tag is not recognized or has no adapter.
	ErrUnsupportedSource = errors.New("unsupported source")
	// ErrValidation means required input is missing or malformed.
	ErrValidation = errors.New("validation error")
)

// Unavailable keeps both the cause and ErrSourceUnavailable in the chain.
func Unavailable(s Source, err error) error {
	if err == nil {
		return errors.Wrapf(ErrSourceUnavailable, "%v", s)
	}
	return fmt.Errorf("%v: %w: %w", s, err, ErrSourceUnavailable)
}

func NotConfigured(s Source) error {
	return errors.Wrapf(ErrNotConfigured, "%v", s)
}

func NotFound(s Source, externalID string) error {
	return errors.Wrapf(ErrNotFound, "%v id %v", s, externalID)
}

func Unsupported(tag any) error {
	return errors.Wrapf(ErrUnsupportedSource, "%v", tag)
}

func Invalid(format string, args ...any) error {
	return errors.Wrapf(ErrValidation, format, args...)
}
