// Package validation checks user input before anything reaches the network.
// Every call is pure: same input, same result, no panics.
package validation

import (
	"c2c-client/moderation"
	stdErrors "errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultMaxIdentityLength = 20
	DefaultMaxContentLength  = 2048
	DefaultMinRoomCodeLength = 3
	DefaultMaxRoomCodeLength = 20

	identCharsTag = "identchars"
	notBlockedTag = "notblocked"
	utf16MaxTag   = "utf16max"
)

type Options struct {
	MaxIdentityLength int
	MaxContentLength  int
	MinRoomCodeLength int
	MaxRoomCodeLength int
	Blocklist         *moderation.Blocklist
}

func DefaultOptions() Options {
	return Options{
		MaxIdentityLength: DefaultMaxIdentityLength,
		MaxContentLength:  DefaultMaxContentLength,
		MinRoomCodeLength: DefaultMinRoomCodeLength,
		MaxRoomCodeLength: DefaultMaxRoomCodeLength,
	}
}

// Validator is safe for concurrent use once built.
// Identity and room code lengths are counted in Unicode code points,
// message content in UTF-16 code units as the web client does.
type Validator struct {
	validate    *validator.Validate
	opts        Options
	identityTag string
	contentTag  string
	roomCodeTag string
}

func New(opts Options) (*Validator, error) {
	defaults := DefaultOptions()
	if opts.MaxIdentityLength <= 0 {
		opts.MaxIdentityLength = defaults.MaxIdentityLength
	}
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = defaults.MaxContentLength
	}
	if opts.MinRoomCodeLength <= 0 {
		opts.MinRoomCodeLength = defaults.MinRoomCodeLength
	}
	if opts.MaxRoomCodeLength < opts.MinRoomCodeLength {
		opts.MaxRoomCodeLength = max(defaults.MaxRoomCodeLength, opts.MinRoomCodeLength)
	}

	v := validator.New()
	if err := v.RegisterValidation(identCharsTag, isIdentChars); err != nil {
		return nil, err
	}
	if err := v.RegisterValidation(utf16MaxTag, isWithinUTF16Max); err != nil {
		return nil, err
	}
	blocklist := opts.Blocklist
	if err := v.RegisterValidation(notBlockedTag, func(fl validator.FieldLevel) bool {
		return !blocklist.Contains(fl.Field().String())
	}); err != nil {
		return nil, err
	}

	return &Validator{
		validate:    v,
		opts:        opts,
		identityTag: fmt.Sprintf("required,max=%d,%s,%s", opts.MaxIdentityLength, identCharsTag, notBlockedTag),
		contentTag:  fmt.Sprintf("required,%s=%d", utf16MaxTag, opts.MaxContentLength),
		roomCodeTag: fmt.Sprintf("required,min=%d,max=%d", opts.MinRoomCodeLength, opts.MaxRoomCodeLength),
	}, nil
}

// ValidateIdentity checks a display name and returns it trimmed.
// Rules apply in order: EMPTY, TOO_LONG, INVALID_CHARS, FORBIDDEN.
func (v *Validator) ValidateIdentity(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	return trimmed, v.check(FieldIdentity, trimmed, v.identityTag)
}

// ValidateContent checks a chat message and returns it trimmed.
func (v *Validator) ValidateContent(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	return trimmed, v.check(FieldContent, trimmed, v.contentTag)
}

// ValidateRoomCode checks a room code and returns it trimmed.
func (v *Validator) ValidateRoomCode(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	return trimmed, v.check(FieldRoomCode, trimmed, v.roomCodeTag)
}

func (v *Validator) MaxContentLength() int {
	return v.opts.MaxContentLength
}

func (v *Validator) check(field Field, value, tag string) error {
	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !stdErrors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return err
	}
	return v.toError(field, fieldErrors[0].Tag())
}

func (v *Validator) toError(field Field, tag string) *Error {
	switch tag {
	case "required":
		return &Error{Field: field, Reason: ReasonEmpty}
	case "min":
		return &Error{Field: field, Reason: ReasonBadLength, Limit: v.opts.MinRoomCodeLength}
	case "max":
		switch field {
		case FieldRoomCode:
			return &Error{Field: field, Reason: ReasonBadLength, Limit: v.opts.MaxRoomCodeLength}
		case FieldContent:
			return &Error{Field: field, Reason: ReasonTooLong, Limit: v.opts.MaxContentLength}
		default:
			return &Error{Field: field, Reason: ReasonTooLong, Limit: v.opts.MaxIdentityLength}
		}
	case utf16MaxTag:
		return &Error{Field: field, Reason: ReasonTooLong, Limit: v.opts.MaxContentLength}
	case identCharsTag:
		return &Error{Field: field, Reason: ReasonInvalidChars}
	case notBlockedTag:
		return &Error{Field: field, Reason: ReasonForbidden}
	default:
		return &Error{Field: field, Reason: Reason(strings.ToUpper(tag))}
	}
}

// isIdentChars accepts letters of any script, decimal digits, space, '_' and '-'.
func isIdentChars(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			continue
		}
		return false
	}
	return true
}

// isWithinUTF16Max counts a rune outside the BMP as two units.
func isWithinUTF16Max(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return UTF16Length(fl.Field().String()) <= limit
}

func UTF16Length(s string) int {
	return len(utf16.Encode([]rune(s)))
}
