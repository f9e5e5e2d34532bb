package validator

import (
	"errors"
	"fmt"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/go-playground/validator/v10"
)

type BlockValidator struct {
	validate *validator.Validate
	log      *logger.Logger
}

func NewBlockValidator(log *logger.Logger) *BlockValidator {
	return &BlockValidator{
		validate: validator.New(),
		log:      log,
	}
}

func (v *BlockValidator) ValidateCreate(req *model.BlockRequest) error {
	return v.run(req)
}

func (v *BlockValidator) ValidateUpdate(req *model.BlockRequest) error {
	return v.run(req)
}

func (v *BlockValidator) run(value any) error {
	if err := v.validate.Struct(value); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) error {
	var messages []string
	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		}

		messages = append(messages, message)
	}

	return fmt.Errorf("validation failed: %d error(s): %v", len(messages), messages)
}
