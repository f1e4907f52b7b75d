package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/steveyegge/painradar/internal/ratelimit"
)

// FailureClass is the retry category of a failed request
type FailureClass int

const (
	ClassOther       FailureClass = iota // network errors and unexpected statuses
	ClassRateLimited                     // HTTP 429
	ClassServerError                     // HTTP 5xx
	ClassTimeout                         // request exceeded its deadline
	ClassForbidden                       // HTTP 403, the host is blocking us
)

func (c FailureClass) String() string {
	switch c {
	case ClassOther:
		return "other"
	case ClassRateLimited:
		return "rate_limited"
	case ClassServerError:
		return "server_error"
	case ClassTimeout:
		return "timeout"
	case ClassForbidden:
		return "forbidden"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(c))
	}
}

// StatusCoder is implemented by errors that carry an HTTP status
type StatusCoder interface {
	StatusCode() int
}

// Classify maps an error to its FailureClass. It never returns an error
// class for nil; callers only classify failures.
func Classify(err error) FailureClass {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return ClassifyStatus(sc.StatusCode())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout
	}
	return ClassOther
}

// ClassifyStatus maps an HTTP status code to its FailureClass
func ClassifyStatus(code int) FailureClass {
	switch {
	case code == http.StatusTooManyRequests:
		return ClassRateLimited
	case code == http.StatusForbidden:
		return ClassForbidden
	case code >= 500 && code <= 599:
		return ClassServerError
	default:
		return ClassOther
	}
}

// IsFatal reports whether err must abort the whole run: the request budget
// is spent, or the host is refusing us outright.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ratelimit.ErrBudgetExceeded) {
		return true
	}
	return Classify(err) == ClassForbidden
}
