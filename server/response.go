package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/pdfqa/core"
)

// ok writes a 200 response with success set and the given fields merged in.
func ok(c *gin.Context, message string, fields gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// fail writes an error response. The status follows the error kind; message
// overrides the error text when non-empty. Internal detail is only exposed
// outside production.
func (s *Server) fail(c *gin.Context, err error, message string) {
	status := core.HTTPStatus(err)
	if message == "" {
		message = err.Error()
		if status == http.StatusInternalServerError {
			message = "Internal Server Error"
		}
	}

	body := gin.H{"success": false, "message": message}

	var notFound *core.DocumentNotFoundError
	if errors.As(err, &notFound) {
		ids := notFound.KnownIDs
		if ids == nil {
			ids = []string{}
		}
		body["availablePdfs"] = ids
	}
	if !s.production {
		body["error"] = err.Error()
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Request.URL.Path, "status", status, "err", err)
	} else {
		s.logger.Debug("request rejected", "path", c.Request.URL.Path, "status", status, "err", err)
	}
	c.AbortWithStatusJSON(status, body)
}
