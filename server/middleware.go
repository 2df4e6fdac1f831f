// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Security header constants.
const (
	HeaderXFrameOptions       = "X-Frame-Options"
	HeaderXContentTypeOptions = "X-Content-Type-Options"
	HeaderReferrerPolicy      = "Referrer-Policy"
)

// Recovery converts panics into a 500 response in the standard envelope.
// The stack trace is logged and only returned to clients outside production.
func Recovery(logger *slog.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logger.Error("panic recovered",
					"panic", r,
					"stack_trace", string(stack),
					"path", c.Request.URL.Path,
					"method", c.Request.Method)

				body := gin.H{"success": false, "message": "Internal Server Error"}
				if !production {
					body["error"] = fmt.Sprintf("panic: %v\n%s", r, stack)
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, body)
			}
		}()
		c.Next()
	}
}

// SecurityHeaders adds the baseline browser hardening headers.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header(HeaderXContentTypeOptions, "nosniff")
		c.Header(HeaderXFrameOptions, "DENY")
		c.Header(HeaderReferrerPolicy, "no-referrer")
		c.Next()
	}
}

// CORS allows any origin without credentials and answers preflight requests.
func CORS() gin.HandlerFunc {
	allowMethods := strings.Join([]string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodHead,
		http.MethodOptions,
	}, ", ")
	allowHeaders := strings.Join([]string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}, ", ")

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			c.Header("Access-Control-Allow-Methods", allowMethods)
			c.Header("Access-Control-Allow-Headers", allowHeaders)
			c.Header("Access-Control-Max-Age", "86400")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", attrs...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	}
}
