package risk

import (
	"context"
	"fmt"
)

// FailSafe wraps a Classifier so that an error or a panic is reported as High.
// A classifier that cannot run must never let a turn pass unchecked.
func FailSafe(inner Classifier) Classifier {
	if inner == nil {
		inner = NewPatternClassifier()
	}
	if fs, ok := inner.(failSafe); ok {
		return fs
	}
	return failSafe{inner: inner}
}

type failSafe struct {
	inner Classifier
}

func (f failSafe) Classify(ctx context.Context, utterance string) (level Level, err error) {
	defer func() {
		if r := recover(); r != nil {
			level = High
			err = fmt.Errorf("risk classifier panicked: %v", r)
		}
	}()

	level, err = f.inner.Classify(ctx, utterance)
	if err != nil {
		return High, fmt.Errorf("risk classifier failed: %w", err)
	}
	if _, ok := ParseLevel(string(level)); !ok {
		return High, fmt.Errorf("risk classifier returned unknown level %q", level)
	}
	return level, nil
}
