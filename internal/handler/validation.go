package handler

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func newValidator() *validator.Validate {
	v := validator.New()

	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// numeric tags (gt, gte) compare decimals as floats
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return v
}

// describe turns validator errors into one readable message.
func describe(err error) string {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	msgs := make([]string, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		case "oneof":
			msgs = append(msgs, field+" must be one of: "+e.Param())
		case "gt":
			msgs = append(msgs, field+" must be greater than "+e.Param())
		case "gte":
			msgs = append(msgs, field+" must be greater than or equal to "+e.Param())
		case "lte":
			msgs = append(msgs, field+" must be less than or equal to "+e.Param())
		case "max":
			msgs = append(msgs, field+" is too long")
		default:
			msgs = append(msgs, field+" failed "+e.Tag()+" validation")
		}
	}
	return strings.Join(msgs, "; ")
}
