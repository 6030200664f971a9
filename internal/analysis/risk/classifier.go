// Package risk classifies a user utterance for self-harm or crisis language.
//
// The pattern classifier is a conservative, low-latency gate: a fast-flag
// pass over high-severity phrasing followed by a length and vocabulary
// heuristic. It favours recall on High over precision.
package risk

import (
	"context"
	"regexp"
	"unicode/utf8"
)

// Classifier assigns a risk level to the most recent user utterance.
type Classifier interface {
	Classify(ctx context.Context, utterance string) (Level, error)
}

// Class names a fast-flag pattern family.
type Class string

const (
	ClassNone           Class = ""
	ClassSuicidalIntent Class = "suicidal_intent"
	ClassSelfHarm       Class = "self_harm"
	ClassOverdose       Class = "overdose"
	ClassFinality       Class = "finality"
	ClassDespair        Class = "despair"
)

// ConcernMinLength is the length an utterance must exceed before despair vocabulary counts.
const ConcernMinLength = 400

type flag struct {
	class Class
	re    *regexp.Regexp
}

// Checked in order; the first match decides the class.
var fastFlags = []flag{
	{ClassSuicidalIntent, regexp.MustCompile(`(?i)suicide|kill myself|end my life`)},
	{ClassSelfHarm, regexp.MustCompile(`(?i)self[-\s]?harm|cutting`)},
	{ClassOverdose, regexp.MustCompile(`(?i)overdose|poison myself`)},
	{ClassFinality, regexp.MustCompile(`(?i)i have a plan|goodbye forever`)},
}

var despairPattern = regexp.MustCompile(`(?i)hopeless|worthless|can['’]t go on`)

// Assessment is a classification together with the pattern family that produced it.
type Assessment struct {
	Level Level
	Class Class
}

// PatternClassifier is the fixed-pattern Classifier. It holds no state and is
// safe for concurrent use.
type PatternClassifier struct{}

// NewPatternClassifier returns the default fixed-pattern classifier.
func NewPatternClassifier() PatternClassifier {
	return PatternClassifier{}
}

// Classify implements Classifier. It never fails.
func (PatternClassifier) Classify(_ context.Context, utterance string) (Level, error) {
	return Assess(utterance).Level, nil
}

// Assess runs the fast-flag pass and then the despair heuristic.
func Assess(utterance string) Assessment {
	for _, f := range fastFlags {
		if f.re.MatchString(utterance) {
			return Assessment{Level: High, Class: f.class}
		}
	}

	if utf8.RuneCountInString(utterance) > ConcernMinLength && despairPattern.MatchString(utterance) {
		return Assessment{Level: Concern, Class: ClassDespair}
	}

	return Assessment{Level: None, Class: ClassNone}
}
