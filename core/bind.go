package core

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Bind decodes the parsed body into v and validates v's `validate` struct
// tags when v points to a struct.
//
// Example:
//
//	type signup struct {
//	    Email string `json:"email" validate:"required,email"`
//	}
//
//	var in signup
//	if err := req.Bind(&in); err != nil {
//	    return err // DefaultErrorHandler answers 400
//	}
func (r *ServerRequest) Bind(v any) error {
	if r.parsedBody == nil {
		return ErrEmptyParsedBody
	}

	data, err := json.Marshal(r.parsedBody)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBind, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBind, err)
	}

	if t := reflect.TypeOf(v); t != nil && t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct {
		return validate.Struct(v)
	}
	return nil
}
