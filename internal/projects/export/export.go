package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/codegen-backend/config"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/domain"
)

// Exporter writes a completed project's generated code somewhere durable.
type Exporter interface {
	Export(ctx context.Context, p *domain.Project) (*Receipt, error)
}

// Receipt describes a finished export.
type Receipt struct {
	Target     string    `json:"target"`
	Location   string    `json:"location"`
	Files      int       `json:"files"`
	ExportedAt time.Time `json:"exported_at"`
}

type manifest struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Requirements []string  `json:"requirements"`
	Files        []string  `json:"files"`
	ExportedAt   time.Time `json:"exported_at"`
}

// New returns the S3 exporter when a bucket is configured, the local one
// otherwise.
func New(ctx context.Context, cfg config.ExportConfig) (Exporter, error) {
	if cfg.S3Bucket != "" {
		return NewS3ExporterFromConfig(ctx, cfg)
	}
	return NewLocalExporter(cfg.LocalDir), nil
}

// prepare checks that p may be exported and returns its files with cleaned,
// relative paths plus the manifest to write next to them.
func prepare(p *domain.Project, now time.Time) ([]domain.CodeFile, []byte, error) {
	if p.Status != domain.StatusCompleted {
		return nil, nil, fmt.Errorf("%w: only completed projects can be exported, status is %s", domain.ErrInvalidTransition, p.Status)
	}
	if len(p.GeneratedCode) == 0 {
		return nil, nil, fmt.Errorf("%w: project has no generated code", domain.ErrInvalidInput)
	}

	files, err := domain.CleanFiles(p.GeneratedCode)
	if err != nil {
		return nil, nil, err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Path)
	}

	m, err := json.MarshalIndent(manifest{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Requirements: p.Requirements,
		Files:        names,
		ExportedAt:   now,
	}, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode manifest: %w", err)
	}
	return files, m, nil
}
