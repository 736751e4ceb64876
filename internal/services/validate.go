package services

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"draw-service/pkg/errorx"
)

var validate = validator.New()

func validateDTO(dto interface{}) error {
	err := validate.Struct(dto)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errorx.Wrap(errorx.ValidationError, err, "invalid request")
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" "+fe.Tag())
	}
	return errorx.New(errorx.ValidationError, "%s", strings.Join(fields, ", "))
}
