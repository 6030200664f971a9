package chat

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turnJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func requireValidationError(t *testing.T, err error, kind ValidationKind) *ValidationError {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidTurn)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %T", err)
	assert.Equal(t, kind, verr.Kind)
	return verr
}

func TestParseTurnAcceptsOrderedMessages(t *testing.T) {
	raw := []byte(`{
		"messages": [
			{"role": "system", "content": "be kind"},
			{"role": "assistant", "content": "Hi, I'm Serene."},
			{"role": "user", "content": "I had a rough day at work"}
		],
		"country": " LK "
	}`)

	turn, err := ParseTurn(raw)
	require.NoError(t, err)

	assert.Equal(t, []Message{
		{Role: RoleSystem, Content: "be kind"},
		{Role: RoleAssistant, Content: "Hi, I'm Serene."},
		{Role: RoleUser, Content: "I had a rough day at work"},
	}, turn.Messages)
	assert.Equal(t, "LK", turn.Country)
}

func TestParseTurnDefaultsRoleToUser(t *testing.T) {
	raw := []byte(`{"messages":[{"content":"no role"},{"role":"moderator","content":"odd role"}]}`)

	turn, err := ParseTurn(raw)
	require.NoError(t, err)
	require.Len(t, turn.Messages, 2)
	assert.Equal(t, RoleUser, turn.Messages[0].Role)
	assert.Equal(t, RoleUser, turn.Messages[1].Role)
}

func TestParseTurnContentBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		content string
		ok      bool
		rule    string
	}{
		{"empty", "", false, "required"},
		{"one character", "a", true, ""},
		{"at limit", strings.Repeat("a", MaxContentLength), true, ""},
		{"multibyte at limit", strings.Repeat("é", MaxContentLength), true, ""},
		{"over limit", strings.Repeat("a", MaxContentLength+1), false, "max"},
		{"multibyte over limit", strings.Repeat("é", MaxContentLength+1), false, "max"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := turnJSON(t, map[string]any{
				"messages": []map[string]string{{"role": "user", "content": tc.content}},
			})

			turn, err := ParseTurn(raw)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.content, turn.Messages[0].Content)
				return
			}

			verr := requireValidationError(t, err, KindConstraint)
			assert.Equal(t, "messages[0].content", verr.Field)
			assert.Equal(t, tc.rule, verr.Rule)
		})
	}
}

func TestMaxTurnBytesFitsWidestValidTurn(t *testing.T) {
	messages := make([]Message, MaxMessagesPerTurn)
	for i := range messages {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		// encoding/json writes '<' as \u003c.
		messages[i] = Message{Role: role, Content: strings.Repeat("<", MaxContentLength)}
	}
	raw := turnJSON(t, Turn{Messages: messages, Country: strings.Repeat("<", MaxCountryLength)})

	_, err := ParseTurn(raw)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(raw), MaxTurnBytes)
}

func TestParseTurnRejectsEmptyMessages(t *testing.T) {
	_, err := ParseTurn([]byte(`{"messages":[]}`))

	verr := requireValidationError(t, err, KindConstraint)
	assert.Equal(t, "messages", verr.Field)
	assert.Equal(t, "min", verr.Rule)
}

func TestParseTurnRejectsTooManyMessages(t *testing.T) {
	messages := make([]Message, MaxMessagesPerTurn+1)
	for i := range messages {
		messages[i] = Message{Role: RoleUser, Content: "hi"}
	}

	_, err := ParseTurn(turnJSON(t, Turn{Messages: messages}))
	verr := requireValidationError(t, err, KindConstraint)
	assert.Equal(t, "max", verr.Rule)
}

func TestParseTurnRejectsLongCountry(t *testing.T) {
	raw := turnJSON(t, map[string]any{
		"messages": []Message{{Role: RoleUser, Content: "hi"}},
		"country":  strings.Repeat("x", MaxCountryLength+1),
	})

	verr := requireValidationError(t, mustFail(ParseTurn(raw)), KindConstraint)
	assert.Equal(t, "country", verr.Field)
}

func TestParseTurnMalformedPayloads(t *testing.T) {
	cases := map[string]string{
		"not json":         `{"messages": [`,
		"top-level array":  `[{"role":"user","content":"hi"}]`,
		"missing messages": `{"country":"LK"}`,
		"null messages":    `{"messages": null}`,
		"object messages":  `{"messages": {"role":"user","content":"hi"}}`,
		"string messages":  `{"messages": "hi"}`,
		"numeric content":  `{"messages": [{"role":"user","content": 42}]}`,
		"empty body":       ``,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTurn([]byte(raw))
			requireValidationError(t, err, KindMalformed)
		})
	}
}

func TestValidationErrorNeverEchoesContent(t *testing.T) {
	secret := "call me at 555-123-4567 " + strings.Repeat("z", MaxContentLength)
	raw := turnJSON(t, map[string]any{
		"messages": []map[string]string{{"role": "user", "content": secret}},
	})

	_, err := ParseTurn(raw)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "555-123-4567")
	assert.NotContains(t, err.Error(), "zzzz")
}

func TestLastUserContentScansFromEnd(t *testing.T) {
	turn := Turn{Messages: []Message{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "second"},
		{Role: RoleAssistant, Content: "reply again"},
	}}

	got, ok := turn.LastUserContent()
	assert.True(t, ok)
	assert.Equal(t, "second", got)

	_, ok = Turn{Messages: []Message{{Role: RoleSystem, Content: "only system"}}}.LastUserContent()
	assert.False(t, ok)
}

func mustFail(_ Turn, err error) error { return err }
