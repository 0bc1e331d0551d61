// Package fields implements the typed field validators used by request
// schemas. Each validator checks the shape of one raw value decoded from a
// JSON request body; validators never mutate values and carry no per-request
// state, so one instance serves every request.
package fields

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// DateLayout is the wire format for date fields.
const DateLayout = "02.01.2006"

// maxAgeDays is the oldest accepted birthday, measured in days before
// today.
const maxAgeDays = 70 * 365

// Error is a field validation failure. Reason is the user-visible message;
// it already names the field where the field carries a name. Missing marks
// a null value supplied for a non-nullable field, as opposed to a value
// that is present but malformed.
type Error struct {
	Field   string
	Reason  string
	Missing bool
}

func (e *Error) Error() string { return e.Reason }

func newError(field, format string, args ...any) *Error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validator is the contract shared by all field kinds.
type Validator interface {
	Name() string
	Required() bool
	Nullable() bool
	// Validate checks a raw decoded value. A nil value passes iff the
	// field is nullable; otherwise a Missing error is returned.
	Validate(value any) error
}

// Field carries the attributes common to every validator kind.
type Field struct {
	name     string
	required bool
	nullable bool
}

func (f Field) Name() string   { return f.name }
func (f Field) Required() bool { return f.required }
func (f Field) Nullable() bool { return f.nullable }

// checkNull handles the shared nullability rule. The bool reports whether
// the value was nil and validation is finished.
func (f Field) checkNull(value any) (bool, error) {
	if value != nil {
		return false, nil
	}
	if f.nullable {
		return true, nil
	}
	return true, &Error{Field: f.name, Reason: f.name + " must not be null", Missing: true}
}

// CharField accepts any string.
type CharField struct{ Field }

func NewChar(name string, required, nullable bool) CharField {
	return CharField{Field{name: name, required: required, nullable: nullable}}
}

func (f CharField) Validate(value any) error {
	if done, err := f.checkNull(value); done {
		return err
	}
	if _, ok := value.(string); !ok {
		return newError(f.name, "%s must be string", f.name)
	}
	return nil
}

// ArgumentsField accepts a JSON object that round-trips through the
// serializer without structural errors.
type ArgumentsField struct{ Field }

func NewArguments(name string, required, nullable bool) ArgumentsField {
	return ArgumentsField{Field{name: name, required: required, nullable: nullable}}
}

func (f ArgumentsField) Validate(value any) error {
	if done, err := f.checkNull(value); done {
		return err
	}
	m, ok := value.(map[string]any)
	if !ok {
		return newError(f.name, "%s bad type %T", f.name, value)
	}
	if _, err := json.Marshal(m); err != nil {
		return newError(f.name, "%s not serializable", f.name)
	}
	return nil
}

// EmailField accepts a string containing an "@". No further shape rules
// apply.
type EmailField struct{ Field }

func NewEmail(name string, required, nullable bool) EmailField {
	return EmailField{Field{name: name, required: required, nullable: nullable}}
}

func (f EmailField) Validate(value any) error {
	if done, err := f.checkNull(value); done {
		return err
	}
	s, ok := value.(string)
	if !ok {
		return newError(f.name, "%s bad type %T", f.name, value)
	}
	for _, r := range s {
		if r == '@' {
			return nil
		}
	}
	return newError(f.name, "%s without @", f.name)
}

// PhoneField accepts an 11-digit value starting with 7, supplied either as
// a string or as a number. The check order differs between the two paths
// and is observable through the returned messages: strings are checked
// length first, numbers leading-digit first.
type PhoneField struct{ Field }

func NewPhone(name string, required, nullable bool) PhoneField {
	return PhoneField{Field{name: name, required: required, nullable: nullable}}
}

func (f PhoneField) Validate(value any) error {
	if done, err := f.checkNull(value); done {
		return err
	}
	switch v := value.(type) {
	case string:
		if len(v) != 11 {
			return newError(f.name, "%s length not equal 11", f.name)
		}
		if v[0] != '7' {
			return newError(f.name, "%s must start with 7", f.name)
		}
		for _, r := range v {
			if r < '0' || r > '9' {
				return newError(f.name, "%s must be number or string of numbers", f.name)
			}
		}
		return nil
	default:
		n, ok := asInt(value)
		if !ok {
			return newError(f.name, "%s bad data type", f.name)
		}
		s := strconv.FormatInt(n, 10)
		if s[0] != '7' {
			return newError(f.name, "%s must start with 7", f.name)
		}
		if len(s) != 11 {
			return newError(f.name, "%s length not equal 11", f.name)
		}
		return nil
	}
}

// DateField accepts a string in dd.mm.yyyy form.
type DateField struct{ Field }

func NewDate(name string, required, nullable bool) DateField {
	return DateField{Field{name: name, required: required, nullable: nullable}}
}

func (f DateField) Validate(value any) error {
	if done, err := f.checkNull(value); done {
		return err
	}
	if _, err := parseDate(value); err != nil {
		return newError(f.name, "%s not in format dd.mm.yyyy", f.name)
	}
	return nil
}

// BirthDayField is a DateField whose value must lie within the accepted age
// window. The format error is re-issued under this field's name so the
// caller sees which use site failed, not a generic date error.
type BirthDayField struct{ DateField }

func NewBirthDay(name string, required, nullable bool) BirthDayField {
	return BirthDayField{DateField{Field{name: name, required: required, nullable: nullable}}}
}

func (f BirthDayField) Validate(value any) error {
	if done, err := f.checkNull(value); done {
		return err
	}
	t, err := parseDate(value)
	if err != nil {
		return newError(f.name, "%s not in format dd.mm.yyyy", f.name)
	}
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if today.Sub(t) > maxAgeDays*24*time.Hour {
		return newError(f.name, "bad %s You're over 70", f.name)
	}
	return nil
}

// GenderField accepts the integers 0, 1 or 2.
type GenderField struct{ Field }

func NewGender(name string, required, nullable bool) GenderField {
	return GenderField{Field{name: name, required: required, nullable: nullable}}
}

func (f GenderField) Validate(value any) error {
	if done, err := f.checkNull(value); done {
		return err
	}
	if n, ok := asInt(value); ok && n >= 0 && n <= 2 {
		return nil
	}
	return newError(f.name, "%s must be 0 or 1 or 2", f.name)
}

// ClientIDsField accepts a non-empty list of integers.
type ClientIDsField struct{ Field }

func NewClientIDs(name string, required, nullable bool) ClientIDsField {
	return ClientIDsField{Field{name: name, required: required, nullable: nullable}}
}

func (f ClientIDsField) Validate(value any) error {
	if value == nil {
		if f.nullable {
			return nil
		}
		return &Error{Field: f.name, Reason: f.name + " is empty", Missing: true}
	}
	list, ok := asList(value)
	if !ok {
		return newError(f.name, "%s not list", f.name)
	}
	if len(list) == 0 {
		return newError(f.name, "%s is empty list", f.name)
	}
	for _, elem := range list {
		if _, ok := asInt(elem); !ok {
			return newError(f.name, "not number in %s", f.name)
		}
	}
	return nil
}

// asInt normalizes the integer representations produced by JSON decoding
// and by direct Go callers. Fractional floats are rejected.
func asInt(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

func asList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []int:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, true
	default:
		return nil, false
	}
}

func parseDate(value any) (time.Time, error) {
	s, ok := value.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("date value is %T, not string", value)
	}
	return time.Parse(DateLayout, s)
}
