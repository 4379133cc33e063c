package validation

import (
	"github.com/gin-gonic/gin/binding"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-table-orders/internal/menu"
	"github.com/imrishuroy/go-table-orders/internal/orders"
)

func init() {
	// request bodies are a strict schema
	binding.EnableDecoderDisallowUnknownFields = true
}

// New returns a configured validator with the domain tags registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// closed menu category set
	_ = v.RegisterValidation("category", func(fl validatorv10.FieldLevel) bool {
		_, ok := menu.ParseCategory(fl.Field().String())
		return ok
	})
	// pub | pizzeria
	_ = v.RegisterValidation("section", func(fl validatorv10.FieldLevel) bool {
		_, ok := orders.ParseSection(fl.Field().String())
		return ok
	})

	return v
}
