package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/llm"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/domain"
)

var errNoFiles = errors.New("empty file list")

// generatedFile accepts both {path, content} and the older {filename, code} shape.
type generatedFile struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Filename string `json:"filename"`
	Code     string `json:"code"`
}

// Generate produces source files for the approved requirements.
func (s *Steps) Generate(ctx context.Context, client llm.Client, requirements []string) Result[[]domain.CodeFile] {
	var b strings.Builder
	b.WriteString("Requirements:\n")
	for i, r := range requirements {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	b.WriteString("\nReturn JSON only.")

	raw, err := client.Invoke(ctx, conversation(s.prompts.Generator.System, b.String()))
	if err != nil {
		return failed[[]domain.CodeFile](err)
	}

	var items []generatedFile
	if err := decodeArray(raw, &items); err != nil {
		return malformed[[]domain.CodeFile](raw, err)
	}
	if len(items) == 0 {
		return malformed[[]domain.CodeFile](raw, errNoFiles)
	}

	files := make([]domain.CodeFile, 0, len(items))
	for i, it := range items {
		path := strings.TrimSpace(it.Path)
		if path == "" {
			path = strings.TrimSpace(it.Filename)
		}
		if path == "" {
			return malformed[[]domain.CodeFile](raw, fmt.Errorf("file %d has no path", i))
		}
		content := it.Content
		if content == "" {
			content = it.Code
		}
		files = append(files, domain.CodeFile{Path: path, Content: content})
	}
	// exports write these paths to disk and object storage
	files, err = domain.CleanFiles(files)
	if err != nil {
		return malformed[[]domain.CodeFile](raw, err)
	}
	return parsed(files, raw)
}
