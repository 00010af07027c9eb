package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

type Response struct {
	Error     string            `json:"error,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func Error(msg, requestID string) Response {
	return Response{
		Error:     msg,
		RequestID: requestID,
	}
}

// ValidationError joins one message per failed field and keys the same
// messages by lowercased field name for the page scripts.
func ValidationError(errs validator.ValidationErrors) Response {
	list := []validator.FieldError(errs)

	msgs := lo.Map(list, func(err validator.FieldError, _ int) string {
		return fieldMessage(err)
	})

	fields := lo.SliceToMap(list, func(err validator.FieldError) (string, string) {
		return strings.ToLower(err.Field()), fieldMessage(err)
	})

	return Response{
		Error:  strings.Join(msgs, ", "),
		Fields: fields,
	}
}

func fieldMessage(err validator.FieldError) string {
	switch err.ActualTag() {
	case "required":
		return fmt.Sprintf("field %s is a required field", err.Field())
	case "email":
		return fmt.Sprintf("field %s is not a valid email address", err.Field())
	case "video_mime":
		return fmt.Sprintf("field %s is not an MP4, AVI or MOV video", err.Field())
	case "gte":
		return fmt.Sprintf("field %s must be at least %s", err.Field(), err.Param())
	default:
		return fmt.Sprintf("field %s is not valid", err.Field())
	}
}
