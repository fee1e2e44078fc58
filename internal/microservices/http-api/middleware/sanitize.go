package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"html"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

// maxBodyBytes caps the request bodies read by SanitizeInput.
var maxBodyBytes int64 = 1 << 20

// SanitizeInput strips HTML from the named top-level string fields of JSON
// bodies. Bodies that are not JSON objects pass through untouched so the
// handler can report the parse error.
func SanitizeInput(fields ...string) gin.HandlerFunc {
	policy := bluemonday.StrictPolicy()
	clean := make(map[string]bool, len(fields))
	for _, f := range fields {
		clean[f] = true
	}

	return func(c *gin.Context) {
		if c.Request.Body == nil ||
			(c.Request.Method != http.MethodPost &&
				c.Request.Method != http.MethodPut &&
				c.Request.Method != http.MethodPatch) {
			c.Next()
			return
		}

		buf, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "Request body too large."})
				return
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "Invalid body."})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(buf))

		var body map[string]json.RawMessage
		if err := json.Unmarshal(buf, &body); err != nil {
			c.Next()
			return
		}

		changed := false
		for k, raw := range body {
			if !clean[k] {
				continue
			}
			var s string
			if json.Unmarshal(raw, &s) != nil {
				continue
			}
			// StrictPolicy also escapes entities; keep the plain text
			cleaned := html.UnescapeString(policy.Sanitize(s))
			if cleaned == s {
				continue
			}
			b, err := json.Marshal(cleaned)
			if err != nil {
				continue
			}
			body[k] = b
			changed = true
		}

		if changed {
			newBody, err := json.Marshal(body)
			if err == nil {
				c.Request.Body = io.NopCloser(bytes.NewReader(newBody))
				c.Request.ContentLength = int64(len(newBody))
			}
		}
		c.Next()
	}
}
