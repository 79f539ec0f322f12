package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ruoshui-go/mbtirec/internal/validation"
	"github.com/ruoshui-go/mbtirec/pkg/models"
)

// ValidateBehaviorRecord gates the behavior endpoint on the embedded JSON
// Schema before the handler binds the body. The raw body is restored so the
// handler can bind it again.
func ValidateBehaviorRecord(validator *validation.SchemaValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			abortValidation(c, "BODY_READ_ERROR", "Failed to read request body", nil)
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		if len(bodyBytes) == 0 {
			abortValidation(c, "EMPTY_BODY", "Request body is required", nil)
			return
		}

		result := validator.ValidateBehaviorRecord(bodyBytes)
		if !result.Valid {
			code := "VALIDATION_ERROR"
			message := "Request validation failed"
			if len(result.Errors) == 1 && result.Errors[0].Code == "INVALID_JSON" {
				code = "INVALID_JSON"
				message = result.Errors[0].Message
			}
			abortValidation(c, code, message, result.Details())
			return
		}

		c.Next()
	}
}

func abortValidation(c *gin.Context, code, message string, details map[string]interface{}) {
	payload := models.Error(code, message, nil)
	if details != nil {
		payload.Details = details
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, payload)
}
