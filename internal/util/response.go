package util

import (
	"errors"
	"net/http"

	"github.com/ZJUSCT/MusicLeague/internal/league"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Response struct {
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

func Success(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Data:    data,
		Message: message,
	})
}

func Error(c *gin.Context, code int, err interface{}) {
	msg := ""
	switch e := err.(type) {
	case string:
		msg = e
	case error:
		msg = e.Error()
	default:
		msg = "Internal Server Error"
	}

	zap.S().Errorf("API Error: %s", msg)

	c.JSON(code, Response{
		Code:    -1,
		Data:    nil,
		Message: msg,
	})
}

var statusByKind = []struct {
	kind   error
	status int
}{
	{league.ErrUnauthorized, http.StatusForbidden},
	{league.ErrInvalidWindow, http.StatusBadRequest},
	{league.ErrInvalidTransition, http.StatusBadRequest},
	{league.ErrInvalidPoints, http.StatusBadRequest},
	{league.ErrInvalidInput, http.StatusBadRequest},
	{league.ErrPhaseClosed, http.StatusForbidden},
	{league.ErrNotFound, http.StatusNotFound},
	{league.ErrSelfVote, http.StatusForbidden},
	{league.ErrConflict, http.StatusConflict},
}

// StatusFor maps a league error onto an HTTP status; unknown errors are 500.
func StatusFor(err error) int {
	for _, k := range statusByKind {
		if errors.Is(err, k.kind) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// Fail writes err with the status its kind maps to. Internal errors are
// reported without their detail.
func Fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		zap.S().Errorw("internal error", "path", c.FullPath(), "error", err)
		Error(c, status, "internal server error")
		return
	}
	Error(c, status, err)
}
