package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
)

func TestAnthropicChatCompletion(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-haiku-20240307",
			"content": [{"type": "text", "text": "hola mundo"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 15, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("sk-ant-test", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	resp, err := p.ChatCompletion(context.Background(), ChatRequest{
		Model: p.DefaultModel(),
		Messages: []Message{
			{Role: "system", Content: "You translate."},
			{Role: "user", Content: "hello world"},
		},
	})
	if err != nil {
		t.Fatalf("ChatCompletion() error: %v", err)
	}
	if resp.Content != "hola mundo" || resp.ID != "msg_01" || resp.OutputTokens != 4 {
		t.Errorf("unexpected response %+v", resp)
	}
	if _, ok := body["system"]; !ok {
		t.Error("system prompt was not sent as top-level system field")
	}
	if msgs, _ := body["messages"].([]any); len(msgs) != 1 {
		t.Errorf("messages = %v, want only the user turn", body["messages"])
	}
}
