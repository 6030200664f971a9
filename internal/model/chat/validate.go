package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// MaxContentLength bounds a single message, in characters. Longer content is rejected, not truncated.
	MaxContentLength = 4000
	// MaxMessagesPerTurn bounds the history a client may submit with one turn.
	MaxMessagesPerTurn = 100
	MaxCountryLength   = 64

	// maxEscapedRuneBytes is the widest JSON form of one rune (\uXXXX).
	maxEscapedRuneBytes = 6
	messageOverhead     = 256
	envelopeOverhead    = 1024

	// MaxTurnBytes bounds an encoded turn payload. Any turn that passes the
	// constraints above fits, even when every rune is escaped.
	MaxTurnBytes = MaxMessagesPerTurn*(MaxContentLength*maxEscapedRuneBytes+messageOverhead) +
		MaxCountryLength*maxEscapedRuneBytes + envelopeOverhead
)

// ValidationKind separates undecodable payloads from well-formed payloads that break a constraint.
type ValidationKind string

const (
	KindMalformed  ValidationKind = "malformed"
	KindConstraint ValidationKind = "constraint"
)

// ErrInvalidTurn matches every *ValidationError via errors.Is.
var ErrInvalidTurn = errors.New("invalid turn")

// ValidationError reports which field of an inbound turn failed. It never
// carries the rejected content.
type ValidationError struct {
	Kind  ValidationKind
	Field string
	Rule  string
	cause error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Field == "":
		return fmt.Sprintf("invalid turn: %s payload", e.Kind)
	case e.Rule == "":
		return fmt.Sprintf("invalid turn: %s payload at %s", e.Kind, e.Field)
	default:
		return fmt.Sprintf("invalid turn: %s violation at %s (%s)", e.Kind, e.Field, e.Rule)
	}
}

func (e *ValidationError) Unwrap() error { return e.cause }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidTurn }

type turnEnvelope struct {
	Messages []messageEnvelope `json:"messages" validate:"required,min=1,max=100,dive"`
	Country  string            `json:"country" validate:"max=64"`
}

type messageEnvelope struct {
	Role    string `json:"role"`
	Content string `json:"content" validate:"required,max=4000"`
}

var turnValidate *validator.Validate

func init() {
	turnValidate = validator.New(validator.WithRequiredStructEnabled())
	turnValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ParseTurn decodes and constrains an untrusted turn payload. Message order
// and content are preserved exactly; only roles are normalized.
func ParseTurn(raw []byte) (Turn, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Turn{}, &ValidationError{Kind: KindMalformed, cause: err}
	}

	rawMessages, ok := probe["messages"]
	if !ok {
		return Turn{}, &ValidationError{Kind: KindMalformed, Field: "messages", Rule: "required"}
	}
	if trimmed := bytes.TrimSpace(rawMessages); len(trimmed) == 0 || trimmed[0] != '[' {
		return Turn{}, &ValidationError{Kind: KindMalformed, Field: "messages", Rule: "array"}
	}

	var envelope turnEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		verr := &ValidationError{Kind: KindMalformed, cause: err}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			verr.Field = typeErr.Field
			verr.Rule = "type"
		}
		return Turn{}, verr
	}

	for i := range envelope.Messages {
		envelope.Messages[i].Role = string(NormalizeRole(envelope.Messages[i].Role))
	}

	if err := turnValidate.Struct(envelope); err != nil {
		return Turn{}, constraintError(err)
	}

	turn := Turn{
		Messages: make([]Message, len(envelope.Messages)),
		Country:  strings.TrimSpace(envelope.Country),
	}
	for i, msg := range envelope.Messages {
		turn.Messages[i] = Message{Role: Role(msg.Role), Content: msg.Content}
	}
	return turn, nil
}

// constraintError reduces validator output to the first failing field.
func constraintError(err error) *ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Kind: KindConstraint, cause: err}
	}

	first := fieldErrs[0]
	field := first.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}
	return &ValidationError{Kind: KindConstraint, Field: field, Rule: first.Tag()}
}
