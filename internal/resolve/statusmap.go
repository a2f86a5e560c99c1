package resolve

import (
	"errors"
)

type statusEntry struct {
	target  error
	status  int
	code    string
	message string
}

// StatusMap resolves failures through a declarative sentinel-error to
// status-code table. First matching entry wins. An empty message means
// the failure's own text is exposed; use that only for errors whose
// text is written for callers.
type StatusMap struct {
	entries []statusEntry
}

func NewStatusMap() *StatusMap {
	return &StatusMap{}
}

func (m *StatusMap) Map(target error, status int, code, message string) *StatusMap {
	m.entries = append(m.entries, statusEntry{
		target:  target,
		status:  status,
		code:    code,
		message: message,
	})
	return m
}

func (m *StatusMap) Name() string {
	return "statusmap"
}

func (m *StatusMap) Resolve(_ Request, err error) (*Resolution, bool) {
	for _, e := range m.entries {
		if !errors.Is(err, e.target) {
			continue
		}
		msg := e.message
		if msg == "" {
			msg = err.Error()
		}
		return &Resolution{
			Status:  e.status,
			Code:    e.code,
			Message: msg,
		}, true
	}
	return nil, false
}
