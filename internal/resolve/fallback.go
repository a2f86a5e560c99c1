package resolve

import (
	"net/http"
	"time"
)

// ErrorBody is the terminal payload produced when no resolver claims a
// failure.
type ErrorBody struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

const sanitizedMessage = "An unexpected error occurred."

// FallbackRenderer builds the generic error payload for unresolved
// failures. With sanitize active the raw failure text is never exposed
// to the caller.
type FallbackRenderer struct {
	sanitize bool
	now      func() time.Time
}

func NewFallbackRenderer(sanitize bool) *FallbackRenderer {
	return &FallbackRenderer{
		sanitize: sanitize,
		now:      time.Now,
	}
}

// Render is a pure function of (failure, request path, status). Status
// zero is treated as 500; the path field is always populated.
func (f *FallbackRenderer) Render(req Request, err error, status int) ErrorBody {
	if status == 0 {
		status = http.StatusInternalServerError
	}

	path := req.Path
	if path == "" {
		path = "/"
	}

	message := sanitizedMessage
	if !f.sanitize && err != nil {
		message = err.Error()
	}

	return ErrorBody{
		Timestamp: f.now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      path,
	}
}
