package service

// Auth event names reported to an EventRecorder.
const (
	EventRegister  = "register"
	EventLogin     = "login"
	EventRefresh   = "refresh"
	EventLogout    = "logout"
	EventLogoutAll = "logout_all"
)

// EventRecorder receives one call per session operation. The metrics
// package provides the Prometheus implementation.
type EventRecorder interface {
	AuthEvent(event string, success bool)
}

type nopRecorder struct{}

func (nopRecorder) AuthEvent(string, bool) {}

func recorderOrNop(r EventRecorder) EventRecorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
