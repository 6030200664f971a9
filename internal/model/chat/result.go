package chat

import "fmt"

// Mode tags a gateway result on the wire.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeCrisis Mode = "crisis"
)

// Result is what the gateway hands back for a turn. It is closed over
// exactly two variants, Normal and Crisis; switch on the concrete type.
type Result interface {
	Mode() Mode
	Text() string
	isResult()
}

// Normal carries the completion service's reply. Content may be empty.
type Normal struct {
	Content string
}

// Crisis carries the fixed safety message that replaced the model for this turn.
type Crisis struct {
	Content string
}

func (Normal) Mode() Mode     { return ModeNormal }
func (n Normal) Text() string { return n.Content }
func (Normal) isResult()      {}

func (Crisis) Mode() Mode     { return ModeCrisis }
func (c Crisis) Text() string { return c.Content }
func (Crisis) isResult()      {}

// Envelope is the JSON shape of a Result.
type Envelope struct {
	Mode    Mode   `json:"mode"`
	Content string `json:"content"`
}

// Encode converts a Result to its wire form.
func Encode(r Result) Envelope {
	return Envelope{Mode: r.Mode(), Content: r.Text()}
}

// Decode converts a wire envelope back to a Result.
func Decode(e Envelope) (Result, error) {
	switch e.Mode {
	case ModeNormal:
		return Normal{Content: e.Content}, nil
	case ModeCrisis:
		return Crisis{Content: e.Content}, nil
	default:
		return nil, fmt.Errorf("unknown result mode %q", e.Mode)
	}
}
