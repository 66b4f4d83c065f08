package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RespondJSONWithETag writes payload with a strong ETag, or 304 when the
// client already holds it. scope is mixed into the tag so two principals
// never share a validator for per-principal listings.
func RespondJSONWithETag(ctx *gin.Context, status int, scope string, payload any) {
	etag, err := buildETag(scope, payload)
	if err != nil {
		ctx.JSON(status, payload)
		return
	}

	ctx.Header("ETag", etag)
	ctx.Header("Vary", "Authorization")

	if etagMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(status, payload)
}

func buildETag(scope string, payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(scope))
	h.Write([]byte{0})
	h.Write(b)

	return `"` + hex.EncodeToString(h.Sum(nil)) + `"`, nil
}

func etagMatches(ifNoneMatch, current string) bool {
	ifNoneMatch = strings.TrimSpace(ifNoneMatch)
	if ifNoneMatch == "" || current == "" {
		return false
	}

	if ifNoneMatch == "*" {
		return true
	}

	current = stripWeak(current)

	for _, part := range strings.Split(ifNoneMatch, ",") {
		if stripWeak(part) == current {
			return true
		}
	}

	return false
}

// weak comparison is enough for GET revalidation
func stripWeak(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "W/")
}
