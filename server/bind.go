package server

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/poiesic/pdfqa/core"
)

// requiredMessages holds the response message for each request field tagged
// binding:"required", keyed by struct field name.
var requiredMessages = map[string]string{
	"PDFID":      "PDF ID and question are required",
	"Question":   "PDF ID and question are required",
	"UserPrompt": "User prompt is required",
	"Scenario":   "Scenario is required",
}

// bindJSON decodes and validates the request body into req. On failure it
// writes a 400 response and returns false.
func (s *Server) bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if msg, ok := requiredMessages[fe.StructField()]; ok && fe.Tag() == "required" {
			s.fail(c, core.Invalid(fe.Field(), "is required"), msg)
			return false
		}
		s.fail(c, core.Invalid(fe.Field(), fe.Error()), "")
		return false
	}
	s.fail(c, core.Invalid("body", err.Error()), "")
	return false
}
