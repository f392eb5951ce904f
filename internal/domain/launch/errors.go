package launch

import (
	"errors"
	"net/http"
)

// Error is a launch failure with a stable wire code.
type Error struct {
	Code   string
	Status int
}

func (e *Error) Error() string {
	return "launch: " + e.Code
}

var (
	ErrIDRequired       = &Error{Code: "id_required", Status: http.StatusBadRequest}
	ErrGameNotFound     = &Error{Code: "game_not_found", Status: http.StatusNotFound}
	ErrGameDisabled     = &Error{Code: "game_disabled", Status: http.StatusForbidden}
	ErrLocalGame        = &Error{Code: "local_game_not_proxyable", Status: http.StatusBadRequest}
	ErrInvalidTargetURL = &Error{Code: "invalid_target_url", Status: http.StatusBadRequest}
	ErrLaunchFailed     = &Error{Code: "launch_failed", Status: http.StatusInternalServerError}
)

// CodeOf maps err to its wire code and HTTP status. Errors that are not
// launch errors collapse to launch_failed.
func CodeOf(err error) (string, int) {
	var le *Error
	if errors.As(err, &le) {
		return le.Code, le.Status
	}
	return ErrLaunchFailed.Code, ErrLaunchFailed.Status
}
