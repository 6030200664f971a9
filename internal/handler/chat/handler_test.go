package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/serene/backend/internal/model/chat"
	"github.com/zhouzirui/serene/backend/internal/service/crisis"
	"github.com/zhouzirui/serene/backend/internal/service/gateway"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Complete(context.Context, string, []chat.Message) (string, error) {
	return s.reply, s.err
}

func setupRouter(t *testing.T, completer stubCompleter) *chi.Mux {
	t.Helper()
	r, _ := setupInstrumentedRouter(t, completer, nil)
	return r
}

func setupInstrumentedRouter(t *testing.T, completer stubCompleter, origins []string) (*chi.Mux, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	gw, err := gateway.New(gateway.Deps{
		Crisis:    crisis.New(crisis.DefaultRegionCode),
		Completer: completer,
		Metrics:   gateway.NewMetrics(registry),
	}, gateway.Config{SystemPrompt: "You are Serene."})
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}

	r := chi.NewRouter()
	New(gw, nil, origins).RegisterRoutes(r)
	return r, registry
}

const rejectedConstraintMetric = `
# HELP serene_rejected_turns_total Turns rejected by validation, by kind.
# TYPE serene_rejected_turns_total counter
serene_rejected_turns_total{kind="constraint"} 1
`

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
}

func postChat(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestChatNormalTurn(t *testing.T) {
	r := setupRouter(t, stubCompleter{reply: "I'm here with you."})

	resp := postChat(r, `{"messages":[{"role":"user","content":"rough day"}]}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var envelope chat.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Mode != chat.ModeNormal || envelope.Content != "I'm here with you." {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
}

func TestChatCrisisTurn(t *testing.T) {
	r := setupRouter(t, stubCompleter{reply: "should not be used"})

	resp := postChat(r, `{"messages":[{"role":"user","content":"I want to end my life"}]}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var envelope chat.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Mode != chat.ModeCrisis {
		t.Fatalf("expected crisis mode, got %q", envelope.Mode)
	}
	if !strings.Contains(envelope.Content, "1926") {
		t.Fatalf("expected Sri Lanka helpline in %q", envelope.Content)
	}
}

func TestChatRejectsInvalidPayloads(t *testing.T) {
	r := setupRouter(t, stubCompleter{reply: "x"})

	cases := map[string]string{
		"not json":        `hello`,
		"missing list":    `{}`,
		"empty list":      `{"messages":[]}`,
		"list as object":  `{"messages":{"role":"user"}}`,
		"empty content":   `{"messages":[{"role":"user","content":""}]}`,
		"content too big": fmt.Sprintf(`{"messages":[{"role":"user","content":"%s"}]}`, strings.Repeat("a", chat.MaxContentLength+1)),
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := postChat(r, body)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.Code)
			}
			if got := strings.TrimSpace(resp.Body.String()); got != `{"error":"invalid payload"}` {
				t.Fatalf("unexpected body %s", got)
			}
		})
	}
}

func TestChatRejectsOversizedBody(t *testing.T) {
	r, registry := setupInstrumentedRouter(t, stubCompleter{reply: "x"}, nil)

	body := bytes.Repeat([]byte("a"), MaxBodyBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if err := testutil.GatherAndCompare(registry, strings.NewReader(rejectedConstraintMetric), "serene_rejected_turns_total"); err != nil {
		t.Fatalf("rejected counter: %v", err)
	}
}

// A full history of maximal messages whose every character JSON-escapes to
// six bytes is still a valid turn.
func TestChatAcceptsLargestValidTurn(t *testing.T) {
	r := setupRouter(t, stubCompleter{reply: "still here"})

	messages := make([]chat.Message, chat.MaxMessagesPerTurn)
	for i := range messages {
		messages[i] = chat.Message{Role: chat.RoleUser, Content: strings.Repeat("<", chat.MaxContentLength)}
	}
	body, err := json.Marshal(map[string]any{
		"messages": messages,
		"country":  strings.Repeat("<", chat.MaxCountryLength),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(body) < chat.MaxMessagesPerTurn*chat.MaxContentLength*6 {
		t.Fatalf("expected an escaped body, got %d bytes", len(body))
	}

	resp := postChat(r, string(body))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for a %d byte turn, got %d: %s", len(body), resp.Code, resp.Body.String())
	}
}

func TestChatCompletionFailureIsBadGateway(t *testing.T) {
	r := setupRouter(t, stubCompleter{err: errors.New("upstream down: secret detail")})

	resp := postChat(r, `{"messages":[{"role":"user","content":"hi"}]}`)
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "secret detail") {
		t.Fatalf("upstream error leaked to client: %s", resp.Body.String())
	}
}

func TestChatWebSocketAnswersEachFrame(t *testing.T) {
	srv := httptest.NewServer(setupRouter(t, stubCompleter{reply: "hello back"}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	frames := []struct {
		body string
		want wsReply
	}{
		{`{"messages":[{"role":"user","content":"hi"}]}`, wsReply{Mode: chat.ModeNormal, Content: "hello back"}},
		{`{"messages":[]}`, wsReply{Error: ErrMsgInvalidPayload}},
		{`{"messages":[{"role":"user","content":"I have a plan"}]}`, wsReply{Mode: chat.ModeCrisis}},
	}

	for i, frame := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame.body)); err != nil {
			t.Fatalf("frame %d: write: %v", i, err)
		}
		var got wsReply
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("frame %d: read: %v", i, err)
		}
		if got.Mode != frame.want.Mode || got.Error != frame.want.Error {
			t.Fatalf("frame %d: got %+v, want %+v", i, got, frame.want)
		}
		if frame.want.Content != "" && got.Content != frame.want.Content {
			t.Fatalf("frame %d: content %q", i, got.Content)
		}
	}
}

func TestChatWebSocketChecksOrigin(t *testing.T) {
	r, _ := setupInstrumentedRouter(t, stubCompleter{reply: "hi"}, []string{"http://localhost:5173"})
	srv := httptest.NewServer(r)
	defer srv.Close()

	header := http.Header{"Origin": []string{"https://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	if err == nil {
		conn.Close()
		t.Fatalf("expected handshake from a foreign origin to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", resp)
	}

	header.Set("Origin", "http://localhost:5173")
	conn, _, err = websocket.DefaultDialer.Dial(wsURL(srv), header)
	if err != nil {
		t.Fatalf("dial from allowed origin: %v", err)
	}
	conn.Close()

	// Clients outside a browser send no Origin header.
	conn, _, err = websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial without origin: %v", err)
	}
	conn.Close()
}

func TestChatWebSocketCountsOversizedFrame(t *testing.T) {
	r, registry := setupInstrumentedRouter(t, stubCompleter{reply: "hi"}, nil)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The server may hang up before the whole frame is written.
	_ = conn.WriteMessage(websocket.TextMessage, bytes.Repeat([]byte("a"), MaxBodyBytes+1))

	require.Eventually(t, func() bool {
		return testutil.GatherAndCompare(registry, strings.NewReader(rejectedConstraintMetric), "serene_rejected_turns_total") == nil
	}, 5*time.Second, 10*time.Millisecond)
}
