package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// User-facing messages for story problems.
const (
	MsgTextEmpty    = "Please write your story"
	MsgTextTooShort = "Story is too short"
	MsgTextTooLong  = "Story is too long"
	MsgNoEmotion    = "Please choose an emotion"
	MsgInvalid      = "Story is invalid"
)

// Submission is the story form as checked before it is posted.
type Submission struct {
	Text    string `json:"text" validate:"required,storytext"`
	Emotion string `json:"emotion" validate:"required,emotion"`
}

// Validator wraps the go-playground validator with the story rules.
type Validator struct {
	validator *validator.Validate
}

// New builds a validator for texts of minLen..maxLen characters and the
// given emotion tags. maxLen <= 0 means no upper bound.
func New(minLen, maxLen int, emotions []string) *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// min and max count characters for strings.
	bounds := fmt.Sprintf("min=%d", minLen)
	if maxLen > 0 {
		bounds += fmt.Sprintf(",max=%d", maxLen)
	}
	validate.RegisterAlias("storytext", bounds)

	allowed := make(map[string]struct{}, len(emotions))
	for _, e := range emotions {
		allowed[e] = struct{}{}
	}
	validate.RegisterValidation("emotion", func(fl validator.FieldLevel) bool {
		_, ok := allowed[fl.Field().String()]
		return ok
	})

	// Use JSON field names for validation errors
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validator: validate}
}

// ValidateSubmission trims the text and checks the form. Only the first
// failing rule of each field is reported, text before emotion.
func (v *Validator) ValidateSubmission(text, emotion string) ValidationErrors {
	return v.Validate(Submission{Text: strings.TrimSpace(text), Emotion: emotion})
}

// Validate validates a struct and maps failures to user-facing messages.
func (v *Validator) Validate(i interface{}) ValidationErrors {
	err := v.validator.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "", Message: MsgInvalid}}
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Field() {
	case "text":
		switch fe.ActualTag() {
		case "required":
			return MsgTextEmpty
		case "min":
			return MsgTextTooShort
		case "max":
			return MsgTextTooLong
		}
	case "emotion":
		return MsgNoEmotion
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// ValidationError is one failed field with its user-facing message.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var msgs []string
	for _, e := range v {
		msgs = append(msgs, e.Field+": "+e.Message)
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any errors
func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

// First returns the message of the first error, or "".
func (v ValidationErrors) First() string {
	if len(v) == 0 {
		return ""
	}
	return v[0].Message
}

// Add adds a validation error
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}
