package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/logger"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/domain"
)

// LocalExporter writes files under <root>/<project id>/.
type LocalExporter struct {
	root string
}

func NewLocalExporter(root string) *LocalExporter {
	return &LocalExporter{root: root}
}

func (e *LocalExporter) Export(ctx context.Context, p *domain.Project) (*Receipt, error) {
	now := time.Now().UTC()
	files, manifest, err := prepare(p, now)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(e.root, p.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("create dir for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(target, []byte(f.Content), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.Path, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, domain.ManifestFile), manifest, 0o644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	logger.NewLogger(ctx).WithProject(p.ID).LogInfof("export.local", "wrote %d files to %s", len(files), dir)
	return &Receipt{Target: "local", Location: dir, Files: len(files), ExportedAt: now}, nil
}
