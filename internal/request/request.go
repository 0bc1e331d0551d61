// Package request defines the request schemas: ordered sets of field
// validators describing one request shape each. Schema descriptors are
// built once at package init and shared; per-request instances hold only
// the validated, typed values.
package request

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/hornshoofs/scoring-api/internal/fields"
)

// MissingFieldError reports an envelope key that is absent from the raw
// request body. Distinct from a field-level null: the key must be present
// even if its value is null.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string { return "missing field " + e.Field }

// Schema is an immutable, ordered set of named validators. Validation is
// fail-fast in declaration order: the first invalid field decides the
// error a caller sees.
type Schema struct {
	fields []fields.Validator
}

// Validate runs every validator against the raw body. Missing keys bind to
// nil; unknown keys are ignored.
func (s Schema) Validate(body map[string]any) error {
	for _, f := range s.fields {
		if err := f.Validate(body[f.Name()]); err != nil {
			return err
		}
	}
	return nil
}

// checkPresence requires every declared key to exist in the body,
// regardless of value.
func (s Schema) checkPresence(body map[string]any) error {
	for _, f := range s.fields {
		if _, ok := body[f.Name()]; !ok {
			return &MissingFieldError{Field: f.Name()}
		}
	}
	return nil
}

var envelopeSchema = Schema{fields: []fields.Validator{
	fields.NewChar("account", false, true),
	fields.NewChar("login", true, true),
	fields.NewChar("token", true, true),
	fields.NewArguments("arguments", true, true),
	fields.NewChar("method", true, false),
}}

var scoreSchema = Schema{fields: []fields.Validator{
	fields.NewChar("first_name", false, true),
	fields.NewChar("last_name", false, true),
	fields.NewEmail("email", false, true),
	fields.NewPhone("phone", false, true),
	fields.NewBirthDay("birthday", false, true),
	fields.NewGender("gender", false, true),
}}

var interestsSchema = Schema{fields: []fields.Validator{
	fields.NewClientIDs("client_ids", true, false),
	fields.NewDate("date", false, true),
}}

// Envelope is the validated outer request.
type Envelope struct {
	Account   string
	Login     string
	Token     string
	Arguments map[string]any
	Method    string
}

// AdminLogin is the single privileged login name.
const AdminLogin = "admin"

// IsAdmin reports whether the envelope was sent under the admin login.
func (e *Envelope) IsAdmin() bool { return e.Login == AdminLogin }

// ArgumentKeys returns the supplied argument keys in sorted order, for
// diagnostics.
func (e *Envelope) ArgumentKeys() []string {
	keys := make([]string, 0, len(e.Arguments))
	for k := range e.Arguments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseEnvelope validates the raw body against the envelope schema. All
// five keys must be present before field-level validation runs.
func ParseEnvelope(body map[string]any) (*Envelope, error) {
	if err := envelopeSchema.checkPresence(body); err != nil {
		return nil, err
	}
	if err := envelopeSchema.Validate(body); err != nil {
		return nil, err
	}
	env := &Envelope{
		Account: str(body["account"]),
		Login:   str(body["login"]),
		Token:   str(body["token"]),
		Method:  str(body["method"]),
	}
	if m, ok := body["arguments"].(map[string]any); ok {
		env.Arguments = m
	} else {
		env.Arguments = map[string]any{}
	}
	return env, nil
}

// ScoreArgs holds the validated online_score arguments. Nil pointers mark
// fields that were absent or null.
type ScoreArgs struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string // normalized to its decimal string form
	Birthday  *string
	Gender    *int
}

func (a *ScoreArgs) HasPhone() bool    { return a.Phone != nil && *a.Phone != "" }
func (a *ScoreArgs) HasEmail() bool    { return a.Email != nil && *a.Email != "" }
func (a *ScoreArgs) HasBirthday() bool { return a.Birthday != nil }
func (a *ScoreArgs) HasGender() bool   { return a.Gender != nil }
func (a *ScoreArgs) HasName() bool {
	return a.FirstName != nil && *a.FirstName != "" && a.LastName != nil && *a.LastName != ""
}

// ParseScoreArgs validates online_score arguments.
func ParseScoreArgs(args map[string]any) (*ScoreArgs, error) {
	if err := scoreSchema.Validate(args); err != nil {
		return nil, err
	}
	out := &ScoreArgs{
		FirstName: strPtr(args["first_name"]),
		LastName:  strPtr(args["last_name"]),
		Email:     strPtr(args["email"]),
		Birthday:  strPtr(args["birthday"]),
	}
	if v, ok := args["phone"]; ok && v != nil {
		s := phoneString(v)
		out.Phone = &s
	}
	if v, ok := args["gender"]; ok && v != nil {
		if n, ok := asInt(v); ok {
			g := int(n)
			out.Gender = &g
		}
	}
	return out, nil
}

// InterestsArgs holds the validated clients_interests arguments.
type InterestsArgs struct {
	ClientIDs []int64
	Date      *string
}

// ParseInterestsArgs validates clients_interests arguments.
func ParseInterestsArgs(args map[string]any) (*InterestsArgs, error) {
	if err := interestsSchema.Validate(args); err != nil {
		return nil, err
	}
	out := &InterestsArgs{Date: strPtr(args["date"])}
	switch v := args["client_ids"].(type) {
	case []any:
		for _, elem := range v {
			n, _ := asInt(elem)
			out.ClientIDs = append(out.ClientIDs, n)
		}
	case []int:
		for _, n := range v {
			out.ClientIDs = append(out.ClientIDs, int64(n))
		}
	}
	return out, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func strPtr(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

func phoneString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if n, ok := asInt(v); ok {
		return strconv.FormatInt(n, 10)
	}
	return fmt.Sprint(v)
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
