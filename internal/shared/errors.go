package shared

import (
	"errors"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// ErrorKind classifies a fatal cascade-build failure. The kind is the
// leading phrase of the error message so it survives wrapping.
type ErrorKind string

const (
	KindNone                     ErrorKind = ""
	KindConfigFetch              ErrorKind = "config fetch failed"
	KindConfigParse              ErrorKind = "config parse failed"
	KindMappingNotFound          ErrorKind = "no branch mapping found"
	KindDependencyConflict       ErrorKind = "dependency conflict"
	KindMergeStatusIndeterminate ErrorKind = "mergeable status indeterminate"
	KindTargetNotInCatalog       ErrorKind = "target repository not in catalog"
	KindBuildFailure             ErrorKind = "build failed"
	KindSourceHost               ErrorKind = "source host request failed"
)

var kinds = []ErrorKind{
	KindConfigFetch,
	KindConfigParse,
	KindMappingNotFound,
	KindDependencyConflict,
	KindMergeStatusIndeterminate,
	KindTargetNotInCatalog,
	KindBuildFailure,
	KindSourceHost,
}

func (k ErrorKind) Code() errbuilder.ErrCode {
	switch k {
	case KindConfigFetch, KindSourceHost:
		return errbuilder.CodeUnavailable
	case KindConfigParse:
		return errbuilder.CodeInvalidArgument
	case KindMappingNotFound, KindTargetNotInCatalog:
		return errbuilder.CodeNotFound
	case KindDependencyConflict:
		return errbuilder.CodeFailedPrecondition
	case KindMergeStatusIndeterminate:
		return errbuilder.CodeDeadlineExceeded
	case KindBuildFailure:
		return errbuilder.CodeAborted
	default:
		return errbuilder.CodeInternal
	}
}

// KindError builds an error of the given kind. detail names the
// repository, branch or proposal involved.
func KindError(kind ErrorKind, detail string, cause error) error {
	msg := string(kind)
	if strings.TrimSpace(detail) != "" {
		msg += ": " + detail
	}
	builder := errbuilder.New().
		WithCode(kind.Code()).
		WithMsg(msg)
	if cause != nil {
		return builder.WithCause(cause)
	}
	return builder
}

// KindOf reports the kind of err, or KindNone.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	message := err.Error()
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		message = builder.Msg
	}
	for _, kind := range kinds {
		if strings.HasPrefix(message, string(kind)) {
			return kind
		}
	}
	return KindNone
}
