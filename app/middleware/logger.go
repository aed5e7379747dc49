package middleware

import (
	"bytes"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/pretty"

	"storepulse/pkg/logger"
)

// Logger logs each request with latency, status, and client IP. Bodies of
// mutating requests are included so manual triggers and schedule edits are
// traceable in the run log.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}

		start := time.Now()

		var bodyStr string
		if c.Request.Method == "POST" || c.Request.Method == "PUT" {
			bodyStr = requestBody(c)
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if bodyStr != "" {
			logger.Infof("%3d | %13v | %15s | %s %s | body=%s",
				status, latency, c.ClientIP(), c.Request.Method, c.Request.RequestURI, bodyStr)
			return
		}
		logger.Infof("%3d | %13v | %15s | %s %s",
			status, latency, c.ClientIP(), c.Request.Method, c.Request.RequestURI)
	}
}

// requestBody reads and restores the request body so the handler can still
// bind it.
func requestBody(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	bodyBytes, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	return CompressBody(string(bodyBytes))
}

// CompressBody strips whitespace from a JSON body and truncates long
// payloads.
func CompressBody(body string) string {
	if len(body) == 0 {
		return ""
	}
	compressed := pretty.Ugly([]byte(body))
	if len(compressed) > 512 {
		return string(compressed[:512]) + "..."
	}
	return string(compressed)
}
