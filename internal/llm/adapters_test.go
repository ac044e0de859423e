package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seenRequest struct {
	path string
	body []byte
}

// fakeUpstream answers every request with status and body and hands the
// received request to the test.
func fakeUpstream(t *testing.T, status int, body string) (*httptest.Server, <-chan seenRequest) {
	t.Helper()
	seen := make(chan seenRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		select {
		case seen <- seenRequest{path: r.URL.Path, body: raw}:
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, seen
}

var testConversation = []Message{
	{Role: RoleSystem, Content: "You are an architect."},
	{Role: RoleUser, Content: "Build a shop."},
	{Role: RoleAssistant, Content: "Who are the users?"},
	{Role: RoleUser, Content: "Retail buyers."},
}

type adapterCase struct {
	name      string
	newClient func(baseURL string) Client
	okBody    string
	emptyBody string
	errorBody string
}

func adapterCases() []adapterCase {
	opts := Options{Model: "test-model", MaxTokens: 256}
	return []adapterCase{
		{
			name: "openai",
			newClient: func(baseURL string) Client {
				return NewOpenAIClient(ProviderOpenAI, "sk-test", baseURL+"/v1", opts)
			},
			okBody:    `{"id":"c1","object":"chat.completion","created":1,"model":"test-model","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"[\"auth\"]"}}]}`,
			emptyBody: `{"id":"c1","object":"chat.completion","created":1,"model":"test-model","choices":[]}`,
			errorBody: `{"error":{"message":"upstream said no","type":"error"}}`,
		},
		{
			name: "anthropic",
			newClient: func(baseURL string) Client {
				return NewAnthropicClient("sk-ant-test", baseURL, opts)
			},
			okBody:    `{"id":"m1","type":"message","role":"assistant","model":"test-model","stop_reason":"end_turn","content":[{"type":"text","text":"[\"auth\"]"}],"usage":{"input_tokens":1,"output_tokens":1}}`,
			emptyBody: `{"id":"m1","type":"message","role":"assistant","model":"test-model","stop_reason":"end_turn","content":[],"usage":{"input_tokens":1,"output_tokens":0}}`,
			errorBody: `{"type":"error","error":{"type":"api_error","message":"upstream said no"}}`,
		},
		{
			name: "gemini",
			newClient: func(baseURL string) Client {
				return NewGeminiClient("g-test", baseURL+"/", opts)
			},
			okBody:    `{"candidates":[{"content":{"role":"model","parts":[{"text":"[\"auth\"]"}]}}]}`,
			emptyBody: `{"candidates":[]}`,
			errorBody: `{"error":{"code":%d,"message":"upstream said no","status":"ERROR"}}`,
		},
		{
			name: "ollama",
			newClient: func(baseURL string) Client {
				return NewOllamaClient(baseURL, opts)
			},
			okBody:    `{"model":"test-model","message":{"role":"assistant","content":"[\"auth\"]"},"done":true}`,
			emptyBody: `{"model":"test-model","message":{"role":"assistant","content":""},"done":true}`,
			errorBody: `{"error":"upstream said no"}`,
		},
	}
}

func errorBodyFor(tc adapterCase, status int) string {
	if strings.Contains(tc.errorBody, "%d") {
		return fmt.Sprintf(tc.errorBody, status)
	}
	return tc.errorBody
}

func TestAdapters_ReturnReplyText(t *testing.T) {
	for _, tc := range adapterCases() {
		t.Run(tc.name, func(t *testing.T) {
			server, _ := fakeUpstream(t, http.StatusOK, tc.okBody)

			reply, err := tc.newClient(server.URL).Invoke(context.Background(), testConversation)
			require.NoError(t, err)
			assert.Equal(t, `["auth"]`, reply)
		})
	}
}

func TestAdapters_EmptyReply(t *testing.T) {
	for _, tc := range adapterCases() {
		t.Run(tc.name, func(t *testing.T) {
			server, _ := fakeUpstream(t, http.StatusOK, tc.emptyBody)

			_, err := tc.newClient(server.URL).Invoke(context.Background(), testConversation)
			require.Error(t, err)
			assert.Equal(t, ErrorTypeEmptyResponse, TypeOf(err))
		})
	}
}

func TestAdapters_StatusClassification(t *testing.T) {
	statuses := []struct {
		status    int
		want      ErrorType
		retryable bool
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit, true},
		{http.StatusServiceUnavailable, ErrorTypeTransient, true},
		{http.StatusUnauthorized, ErrorTypeAuth, false},
	}
	for _, tc := range adapterCases() {
		for _, st := range statuses {
			t.Run(tc.name+"/"+strconv.Itoa(st.status), func(t *testing.T) {
				server, _ := fakeUpstream(t, st.status, errorBodyFor(tc, st.status))

				_, err := tc.newClient(server.URL).Invoke(context.Background(), testConversation)
				require.Error(t, err)
				assert.Equal(t, st.want, TypeOf(err), err.Error())
				assert.Equal(t, st.retryable, IsRetryable(err))
			})
		}
	}
}

func TestOpenAIClient_SendsRolesInOrder(t *testing.T) {
	cases := adapterCases()
	server, seen := fakeUpstream(t, http.StatusOK, cases[0].okBody)

	_, err := cases[0].newClient(server.URL).Invoke(context.Background(), testConversation)
	require.NoError(t, err)

	req := <-seen
	assert.Equal(t, "/v1/chat/completions", req.path)

	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(req.body, &body))
	assert.Equal(t, "test-model", body.Model)

	var roles []string
	for _, m := range body.Messages {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
	assert.Contains(t, string(body.Messages[0].Content), "You are an architect.")
}

func TestAnthropicClient_SplitsSystemPrompt(t *testing.T) {
	cases := adapterCases()
	server, seen := fakeUpstream(t, http.StatusOK, cases[1].okBody)

	_, err := cases[1].newClient(server.URL).Invoke(context.Background(), testConversation)
	require.NoError(t, err)

	req := <-seen
	assert.Equal(t, "/v1/messages", req.path)

	var body struct {
		System []struct {
			Text string `json:"text"`
		} `json:"system"`
		Messages []struct {
			Role    string `json:"role"`
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(req.body, &body))
	require.Len(t, body.System, 1)
	assert.Equal(t, "You are an architect.", body.System[0].Text)

	var roles []string
	for _, m := range body.Messages {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []string{"user", "assistant", "user"}, roles)
	assert.Equal(t, "Retail buyers.", body.Messages[2].Content[0].Text)
}

func TestAnthropicClient_RejectsConversationWithoutUserTurn(t *testing.T) {
	c := NewAnthropicClient("sk-ant-test", "http://127.0.0.1:1", Options{})

	_, err := c.Invoke(context.Background(), []Message{{Role: RoleSystem, Content: "only a system prompt"}})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeBadPrompt, TypeOf(err))
}

func TestGeminiClient_MapsRolesAndSystemInstruction(t *testing.T) {
	cases := adapterCases()
	server, seen := fakeUpstream(t, http.StatusOK, cases[2].okBody)

	_, err := cases[2].newClient(server.URL).Invoke(context.Background(), testConversation)
	require.NoError(t, err)

	req := <-seen
	assert.True(t, strings.HasSuffix(req.path, "models/test-model:generateContent"), req.path)

	var body struct {
		Contents []struct {
			Role string `json:"role"`
		} `json:"contents"`
		SystemInstruction struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"systemInstruction"`
	}
	require.NoError(t, json.Unmarshal(req.body, &body))

	var roles []string
	for _, c := range body.Contents {
		roles = append(roles, c.Role)
	}
	assert.Equal(t, []string{"user", "model", "user"}, roles)
	require.Len(t, body.SystemInstruction.Parts, 1)
	assert.Equal(t, "You are an architect.", body.SystemInstruction.Parts[0].Text)
}

func TestOllamaClient_SendsNonStreamingChat(t *testing.T) {
	cases := adapterCases()
	server, seen := fakeUpstream(t, http.StatusOK, cases[3].okBody)

	_, err := cases[3].newClient(server.URL).Invoke(context.Background(), testConversation)
	require.NoError(t, err)

	req := <-seen
	assert.Equal(t, "/api/chat", req.path)

	var body struct {
		Model    string `json:"model"`
		Stream   *bool  `json:"stream"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(req.body, &body))
	assert.Equal(t, "test-model", body.Model)
	require.NotNil(t, body.Stream)
	assert.False(t, *body.Stream)
	assert.Len(t, body.Messages, 4)
	assert.Equal(t, "system", body.Messages[0].Role)
}
