package request

import (
	"encoding/json"
	"errors"
	"io"
	"regexp"

	cErr "fingate/internal/pkg/error"

	"github.com/go-playground/validator/v10"
)

// Validator DTO 以「欄位.tag」對應自訂訊息，slice 元素寫成 Events.*.tag
type Validator interface {
	GetMessages() ValidatorMessages
}

type ValidatorMessages map[string]string

// FieldError 放在錯誤回應的 details
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

var indexPattern = regexp.MustCompile(`\[\d+\]`)

// GetError 將綁定錯誤轉成 validation-error，所有欄位錯誤列在 details
func GetError(request any, err error) *cErr.Error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return cErr.ValidateErr("request body is required")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return cErr.BadRequestBody("malformed JSON body")
	case errors.As(err, &typeErr):
		return cErr.ValidateErr(typeErr.Field + " has the wrong type").
			WithDetails([]FieldError{{Field: typeErr.Field, Rule: "type", Message: "expected " + typeErr.Type.String()}})
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return cErr.ValidateErr("Parameter error")
	}

	var messages ValidatorMessages
	if v, ok := request.(Validator); ok {
		messages = v.GetMessages()
	}
	fields := make([]FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msg, ok := messages[indexPattern.ReplaceAllString(fe.StructField(), ".*")+"."+fe.Tag()]
		if !ok {
			msg = fe.Error()
		}
		fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Message: msg})
	}
	return cErr.ValidateErr(fields[0].Message).WithDetails(fields)
}
