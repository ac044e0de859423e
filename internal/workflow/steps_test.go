package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/llm"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/llm/llmtest"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/domain"
)

func TestInterview_Ready(t *testing.T) {
	client := llmtest.New(llmtest.Text("```json\n{\"needsMoreInfo\": false, \"refinedDescription\": \" online store v2 \"}\n```"))

	res := New().Interview(context.Background(), client, "online store", nil)

	require.Equal(t, Parsed, res.Outcome, res.Reason())
	assert.False(t, res.Value.NeedsMoreInfo)
	assert.Equal(t, "online store v2", res.Value.RefinedDescription)

	calls := client.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 2)
	assert.Equal(t, llm.RoleSystem, calls[0][0].Role)
	assert.Contains(t, calls[0][1].Content, "Project description: online store")
}

func TestInterview_NeedsMoreInfo(t *testing.T) {
	client := llmtest.New(llmtest.Text(`{"needsMoreInfo": true, "refinedDescription": "store", "questions": ["Who pays?", " ", "Which currency?"]}`))
	history := []domain.ConversationEntry{
		{Role: domain.SpeakerAgent, Message: "What is the budget?"},
		{Role: domain.SpeakerUser, Message: "budget is $10k"},
	}

	res := New().Interview(context.Background(), client, "store", history)

	require.True(t, res.OK())
	assert.Equal(t, []string{"Who pays?", "Which currency?"}, res.Value.Questions)
	prompt := client.Calls()[0][1].Content
	assert.Contains(t, prompt, "Interviewer: What is the budget?\nUser: budget is $10k")
}

func TestInterview_NeedsMoreInfoWithoutQuestionsIsMalformed(t *testing.T) {
	client := llmtest.New(llmtest.Text(`{"needsMoreInfo": true, "refinedDescription": "store", "questions": []}`))

	res := New().Interview(context.Background(), client, "store", nil)

	assert.Equal(t, Malformed, res.Outcome)
	assert.ErrorIs(t, res.Err, errNoQuestions)
}

func TestInterview_ModelError(t *testing.T) {
	boom := errors.New("provider down")
	res := New().Interview(context.Background(), llmtest.New(llmtest.Fail(boom)), "store", nil)

	assert.Equal(t, Failed, res.Outcome)
	assert.ErrorIs(t, res.Err, boom)
	assert.Contains(t, res.Reason(), "model invocation failed")
}

func TestInterview_TrimsHistoryToBudget(t *testing.T) {
	var history []domain.ConversationEntry
	for i := 0; i < 50; i++ {
		history = append(history, domain.ConversationEntry{Role: domain.SpeakerUser, Message: strings.Repeat("lorem ipsum dolor ", 20)})
	}
	history = append(history, domain.ConversationEntry{Role: domain.SpeakerUser, Message: "latest answer"})
	client := llmtest.New(llmtest.Text(`{"needsMoreInfo": false, "refinedDescription": "x"}`))

	New(WithMaxPromptTokens(200)).Interview(context.Background(), client, "store", history)

	prompt := client.Calls()[0][1].Content
	assert.Contains(t, prompt, "latest answer")
	assert.Less(t, strings.Count(prompt, "lorem"), 50*20)
}

func TestAnalyze(t *testing.T) {
	client := llmtest.New(llmtest.Text("Here you go:\n[\"auth\", \"  \", \"catalog\"]"))

	res := New().Analyze(context.Background(), client, "Shop", "online store")

	require.True(t, res.OK(), res.Reason())
	assert.Equal(t, []string{"auth", "catalog"}, res.Value)
	assert.Equal(t, "Project: Shop\nDescription: online store\n\nReturn JSON only.", client.Calls()[0][1].Content)
}

func TestAnalyze_Malformed(t *testing.T) {
	for name, reply := range map[string]string{
		"prose":       "I could not do that",
		"empty array": "[]",
		"object":      `["a", {"b": 1}]`,
	} {
		t.Run(name, func(t *testing.T) {
			res := New().Analyze(context.Background(), llmtest.New(llmtest.Text(reply)), "Shop", "store")
			assert.Equal(t, Malformed, res.Outcome)
			assert.Equal(t, reply, res.Raw)
		})
	}
}

func TestGenerate(t *testing.T) {
	reply := "```json\n[{\"path\": \"src/main.ts\", \"content\": \"console.log('```')\"}, {\"filename\": \"README.md\", \"code\": \"# Shop\"}]\n```"
	client := llmtest.New(llmtest.Text(reply))

	res := New().Generate(context.Background(), client, []string{"auth", "catalog"})

	require.True(t, res.OK(), res.Reason())
	assert.Equal(t, []domain.CodeFile{
		{Path: "src/main.ts", Content: "console.log('```')"},
		{Path: "README.md", Content: "# Shop"},
	}, res.Value)
	assert.Contains(t, client.Calls()[0][1].Content, "1. auth\n2. catalog\n")
}

func TestGenerate_MissingPath(t *testing.T) {
	res := New().Generate(context.Background(), llmtest.New(llmtest.Text(`[{"content": "x"}]`)), []string{"auth"})
	assert.Equal(t, Malformed, res.Outcome)
}

func TestGenerate_RejectsUnsafePaths(t *testing.T) {
	for name, reply := range map[string]string{
		"parent escape": `[{"path": "../x.ts", "content": "x"}]`,
		"absolute":      `[{"path": "/etc/passwd", "content": "x"}]`,
		"duplicate":     `[{"path": "a.ts", "content": "x"}, {"path": "./a.ts", "content": "y"}]`,
		"reserved":      `[{"path": "codegen-manifest.json", "content": "{}"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			res := New().Generate(context.Background(), llmtest.New(llmtest.Text(reply)), []string{"auth"})
			assert.Equal(t, Malformed, res.Outcome)
			assert.ErrorIs(t, res.Err, domain.ErrInvalidInput)
		})
	}
}

func TestGenerate_NormalizesPaths(t *testing.T) {
	res := New().Generate(context.Background(), llmtest.New(llmtest.Text(`[{"path": "./src\\app.ts", "content": "x"}]`)), []string{"auth"})
	require.True(t, res.OK(), res.Reason())
	assert.Equal(t, "src/app.ts", res.Value[0].Path)
}

func TestParsePrompts(t *testing.T) {
	p := DefaultPrompts()
	assert.NotEmpty(t, p.Interviewer.System)
	assert.NotEmpty(t, p.Analyst.System)
	assert.NotEmpty(t, p.Generator.System)

	_, err := ParsePrompts([]byte("interviewer:\n  system: hi\n"))
	assert.Error(t, err)

	custom, err := ParsePrompts([]byte("interviewer: {system: a}\nanalyst: {system: b}\ngenerator: {system: c}\n"))
	require.NoError(t, err)
	client := llmtest.New(llmtest.Text(`["x"]`))
	New(WithPrompts(custom)).Analyze(context.Background(), client, "n", "d")
	assert.Equal(t, "b", client.Calls()[0][0].Content)
}
