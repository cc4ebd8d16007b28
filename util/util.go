package util

import (
	"fmt"
	"io"
	"net/http"

	"github.com/clawplet/go-clawplet/env"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is a wrapper for an error message returned from an HTTP handler
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse is a wrapper for a success message returned from an HTTP handler
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrResponse attaches the error to the gin context for logging and sends it to the client
func ErrResponse(c *gin.Context, code int, err error) {
	c.Error(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// HealthCheckHandler returns environment information for liveness checks
func HealthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"env":     env.GetString("ENV"),
			"version": env.GetString("VERSION"),
		})
	}
}

// BodyAsError reads the body of a response and returns it wrapped as an error
func BodyAsError(res *http.Response) error {
	bs, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	return fmt.Errorf(string(bs))
}

// TruncateWithEllipsis truncates a string to a given length, adding an ellipsis if it was truncated
func TruncateWithEllipsis(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length] + "..."
}

// ToPointer returns a pointer to the given value
func ToPointer[T any](value T) *T {
	return &value
}
