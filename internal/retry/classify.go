package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// transientStatusPattern matches a bare 500 or 503 inside an error message.
var transientStatusPattern = regexp.MustCompile(`\b(500|503)\b`)

// transientMarkers are lower-case fragments that identify overload or
// internal failures in error text.
var transientMarkers = []string{
	"unavailable",
	"overloaded",
	"internal",
}

type statusCoder interface {
	StatusCode() int
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type coder interface {
	Code() int
}

// IsTransient is the default Classifier. It reports whether err looks like a
// temporary server-side failure: HTTP 503/UNAVAILABLE/overloaded or
// HTTP 500/INTERNAL. Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return IsTransientStatus(statusOf(err), err.Error(), fmt.Sprintf("%+v", err))
}

// IsTransientStatus classifies a status code and any descriptive texts.
// A non-zero code decides on its own: 500 and 503 are transient, everything
// else is not. With a zero code the texts are searched case-insensitively.
func IsTransientStatus(code int, texts ...string) bool {
	switch code {
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		return true
	case 0:
	default:
		return false
	}

	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, marker := range transientMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
		if transientStatusPattern.MatchString(lower) {
			return true
		}
	}
	return false
}

// statusOf returns the first status code exposed anywhere in err's chain, or 0.
func statusOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	var hc httpStatusCoder
	if errors.As(err, &hc) {
		return hc.HTTPStatusCode()
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return 0
}
