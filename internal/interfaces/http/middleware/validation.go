package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/shoppyshops/shoppyshops.shop/internal/interfaces/http/dto"
)

// SetupValidator configures gin's validator to report JSON field names in
// validation errors instead of Go struct field names.
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// HandleValidationError writes a 400 response with per-field details when the
// error came from the validator, or a plain bad-request envelope otherwise.
func HandleValidationError(c *gin.Context, err error) {
	requestID := GetRequestID(c)

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]dto.ValidationDetail, 0, len(validationErrors))
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: validationMessage(e),
			})
		}
		c.JSON(http.StatusBadRequest,
			dto.NewValidationErrorResponse("Request validation failed", requestID, details))
		return
	}

	c.JSON(http.StatusBadRequest,
		dto.NewErrorResponse(dto.ErrCodeBadRequest, err.Error(), requestID))
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Type().Kind() == reflect.Slice || e.Type().Kind() == reflect.String {
			return "Must have at least " + e.Param() + " elements"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.Slice || e.Type().Kind() == reflect.String {
			return "Must have at most " + e.Param() + " elements"
		}
		return "Must be at most " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	default:
		return "Invalid value"
	}
}
