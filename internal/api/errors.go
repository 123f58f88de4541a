package api

import (
	"errors"
	"fmt"
)

// Error is a rejection: the backend answered with a non-2xx status. Detail
// carries the backend's error text when one was supplied.
//
// Any other error returned by the client is a transport failure: no
// response was received at all.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("status %d", e.Status)
}

// IsRejection reports whether err is a backend rejection and returns it.
func IsRejection(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsStatus reports whether err is a rejection with the given status code.
func IsStatus(err error, status int) bool {
	apiErr, ok := IsRejection(err)
	return ok && apiErr.Status == status
}

// Humanize maps an error to the message shown to the operator. Backend
// detail text is passed through; transport failures get a generic
// connectivity message, matching how the app always reported them.
func Humanize(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := IsRejection(err); ok {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return fmt.Sprintf("Serverfehler (Status %d)", apiErr.Status)
	}
	return "Server nicht erreichbar. Bitte Verbindung prüfen."
}
