package validation

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// BindAndValidate binds JSON body into `out` and runs validation.
// If validation fails, it writes a 400 response and returns an error for the handler to short-circuit.
func BindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid_request_body",
			"message": err.Error(),
		})
		return err
	}

	if err := v.Struct(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "validation_failed",
			"fields":  validationErrorsToMap(err),
		})
		return err
	}
	return nil
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fe.Namespace()] = fieldMessage(fe)
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}

func fieldMessage(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "category":
		return "unknown category"
	case "section":
		return "unknown section"
	}
	return fe.Error()
}
