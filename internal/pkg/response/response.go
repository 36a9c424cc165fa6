package response

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"

	"github.com/reviewinsight/server/internal/pkg/apperr"
)

// OK sends a 200 response. Arrays/slices are wrapped in {data: [...]}.
func OK(c *gin.Context, data interface{}) {
	if data != nil {
		v := reflect.ValueOf(data)
		if v.Kind() == reflect.Slice {
			c.JSON(http.StatusOK, gin.H{"data": data})
			return
		}
	}
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Fail sends an error envelope with an explicit status.
func Fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": 0, "code": status, "message": message})
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, message)
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context) {
	Fail(c, http.StatusNotFound, "Not Found")
}

// TooManyRequests sends a 429 error response.
func TooManyRequests(c *gin.Context) {
	Fail(c, http.StatusTooManyRequests, "Too many requests, slow down")
}

// Error maps err to its status class and sends the envelope. Internal errors
// that are not typed keep their detail out of the response.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	status := apperr.Status(err)
	message := err.Error()
	if apperr.KindOf(err) == "" {
		message = http.StatusText(status)
	}
	Fail(c, status, message)
}
