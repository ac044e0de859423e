package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/llm"
)

var errNoRequirements = errors.New("empty requirements list")

// Analyze derives an ordered requirements list from a project's name and description.
func (s *Steps) Analyze(ctx context.Context, client llm.Client, name, description string) Result[[]string] {
	user := fmt.Sprintf("Project: %s\nDescription: %s\n\nReturn JSON only.", name, description)

	raw, err := client.Invoke(ctx, conversation(s.prompts.Analyst.System, user))
	if err != nil {
		return failed[[]string](err)
	}

	var items []string
	if err := decodeArray(raw, &items); err != nil {
		return malformed[[]string](raw, err)
	}

	reqs := make([]string, 0, len(items))
	for _, r := range items {
		if r = strings.TrimSpace(r); r != "" {
			reqs = append(reqs, r)
		}
	}
	if len(reqs) == 0 {
		return malformed[[]string](raw, errNoRequirements)
	}
	return parsed(reqs, raw)
}
