package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mbolis/formforge/log"
	"github.com/mbolis/formforge/model"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	w.WriteHeader(http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

// LogError maps an engine error to its HTTP status: validation failures
// and invalid arguments are the caller's fault, not-found is 404, the
// forbidden gates are 403, anything else (query execution included) is a
// 500.
func LogError(w http.ResponseWriter, code string, err error) {
	switch {
	case model.IsValidation(err):
		LogStatusMsg(w, http.StatusUnprocessableEntity, log.DebugLevel, code, "%s", err)
	case errors.Is(err, model.ErrInvalidArgument):
		LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, code, "%s", err)
	case errors.Is(err, model.ErrNotFound):
		LogNotFound(w, code, nil)
	case errors.Is(err, model.ErrForbidden):
		LogStatus(w, http.StatusForbidden, log.DebugLevel, code)
	default:
		LogInternalError(w, code, err)
	}
}
