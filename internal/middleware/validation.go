package middleware

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/machus/backend/internal/pkg/validation"
)

// RegisterValidators installs the custom binding tags on gin's validator and makes
// field errors report JSON names.
func RegisterValidators(campus *validation.CampusEmail) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding engine %T", binding.Validator.Engine())
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := validation.RegisterCommon(v); err != nil {
		return fmt.Errorf("register common validators: %w", err)
	}
	if err := campus.Register(v); err != nil {
		return fmt.Errorf("register campus email validator: %w", err)
	}
	return nil
}
