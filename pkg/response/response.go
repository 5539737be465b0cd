// Package response provides the uniform JSON response envelope for the
// confcenter HTTP surface.
package response

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/confcenter/pkg/errors"
)

// Response is the envelope returned by every HTTP endpoint.
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Details   []string    `json:"details,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Success writes a 200 response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, &Response{
		Code:      0,
		Message:   "Success",
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

// Fail writes an error response. Arbitrary errors are normalized to an
// internal Errno first so the envelope shape never varies.
func Fail(c *gin.Context, err error) {
	e := errors.FromError(err)
	c.JSON(e.HTTPStatus(), &Response{
		Code:      e.Code,
		Message:   e.Message,
		Details:   e.Details,
		Timestamp: time.Now().UnixMilli(),
	})
}

// FailData writes an error response that still carries data. Used by the
// registration endpoint, which reports an existing app id as an error while
// returning the stored secret.
func FailData(c *gin.Context, err error, data interface{}) {
	e := errors.FromError(err)
	c.JSON(e.HTTPStatus(), &Response{
		Code:      e.Code,
		Message:   e.Message,
		Details:   e.Details,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

// Abort writes an error response and aborts the gin handler chain. Used by
// middleware so downstream handlers never run after an auth failure.
func Abort(c *gin.Context, err error) {
	e := errors.FromError(err)
	c.AbortWithStatusJSON(e.HTTPStatus(), &Response{
		Code:      e.Code,
		Message:   e.Message,
		Details:   e.Details,
		Timestamp: time.Now().UnixMilli(),
	})
}
