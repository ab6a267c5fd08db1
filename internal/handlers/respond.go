// Package handlers exposes the listing API over gin.
package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"mls-property-api/internal/errs"

	"github.com/gin-gonic/gin"
)

// respondError writes err using the status errs.HTTPStatus assigns to it.
// Validation errors carry the offending field.
func respondError(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	body := gin.H{"error": err.Error()}

	var validationErr *errs.ValidationError
	if errors.As(err, &validationErr) {
		body["field"] = validationErr.Field
	}
	var upstreamErr *errs.UpstreamError
	if errors.As(err, &upstreamErr) {
		body["error"] = "image source unavailable"
		if upstreamErr.StatusCode > 0 {
			body["upstream_status"] = upstreamErr.StatusCode
		}
	}
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		body["error"] = "internal server error"
	}
	c.JSON(status, body)
}

// queryInt parses an optional integer query parameter.
func queryInt(c *gin.Context, name string) (*int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errs.Invalid(name, "must be an integer, got %q", raw)
	}
	return &n, nil
}

// queryIntDefault parses an integer query parameter with a fallback.
func queryIntDefault(c *gin.Context, name string, def int) (int, error) {
	n, err := queryInt(c, name)
	if err != nil || n == nil {
		return def, err
	}
	return *n, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(c *gin.Context, name string, def bool) (bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def, errs.Invalid(name, "must be true or false, got %q", raw)
	}
	return b, nil
}

// queryList splits a comma separated query parameter.
func queryList(c *gin.Context, name string) []string {
	var out []string
	for _, part := range strings.Split(c.Query(name), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// imagePath is the gateway path for a property's photo.
func imagePath(propertyID string, order int) string {
	return fmt.Sprintf("/api/images/%s/%d", propertyID, order)
}
