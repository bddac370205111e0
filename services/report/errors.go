package report

import "errors"

// NotFoundError marks an outcome the caller can act on: the requested report
// cannot exist because a required row is missing. The reason text is safe to
// return to HTTP callers.
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string { return e.Reason }

var (
	// ErrTemplateNotFound is returned when no checklist template row matches.
	ErrTemplateNotFound = &NotFoundError{Reason: "Template not found"}

	// ErrVersionNotFound is returned when a template has no versions.
	ErrVersionNotFound = &NotFoundError{Reason: "Template version not found"}

	// ErrAnswersNotFound is returned in inspection mode when the inspection
	// key matches no submitted answers.
	ErrAnswersNotFound = &NotFoundError{Reason: "Answers not found"}
)

// ErrBucketNotConfigured is reported at publish time when no artifact bucket
// has been configured. Missing bucket configuration is not checked at startup.
var ErrBucketNotConfigured = errors.New("artifact bucket is not configured")

// IsNotFound reports whether err is any of the typed not-found outcomes.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
