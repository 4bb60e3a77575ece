package common

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator"
)

// ErrInvalidRequest marks request bodies rejected by validation
var ErrInvalidRequest = errors.New("invalid request")

var (
	defaultValidator     *validator.Validate
	defaultValidatorOnce sync.Once
)

func sharedValidator() *validator.Validate {
	defaultValidatorOnce.Do(func() {
		defaultValidator = validator.New()
	})
	return defaultValidator
}

// ValidateStruct checks the validate tags of s
func ValidateStruct(s any) error {
	return sharedValidator().Struct(s)
}

// GenericEchoValidator plugs go-playground/validator into echo's
// Context.Validate
type GenericEchoValidator struct {
	Validator *validator.Validate
}

func (gv *GenericEchoValidator) Validate(i interface{}) error {
	v := gv.Validator
	if v == nil {
		v = sharedValidator()
	}
	if err := v.Struct(i); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}
