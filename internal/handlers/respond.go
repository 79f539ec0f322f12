package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ruoshui-go/mbtirec/pkg/models"
)

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, models.OK(data, ""))
}

func respondMessage(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, models.OK(data, message))
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.Error(code, message, nil))
}

func respondErrorDetails(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, models.Error(code, message, details))
}

// clientGone reports whether the caller abandoned the request. Errors that
// follow a disconnect are expected fallout, not incidents to log.
func clientGone(c *gin.Context) bool {
	return c.Request.Context().Err() != nil
}

// pathID parses a positive integer path parameter. On failure it writes the
// 400 response itself and reports false.
func pathID(c *gin.Context, name, code string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, code, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// queryInt reads an integer query parameter, falling back to def when the
// value is absent, malformed, or outside [min, max].
func queryInt(c *gin.Context, name string, def, min, max int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return def
	}
	return v
}

// queryFloat reads a float query parameter with the same fallback rules.
func queryFloat(c *gin.Context, name string, def, min, max float64) float64 {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < min || v > max {
		return def
	}
	return v
}

// queryBool reads a boolean query parameter, falling back to def unless the
// value is a literal true/false.
func queryBool(c *gin.Context, name string, def bool) bool {
	switch c.Query(name) {
	case "true", "1":
		return true
	case "false", "0":
		return false
	default:
		return def
	}
}
