package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"bilancio/internal/core"
)

// DirExporter writes each report as an XLSX file into a directory.
type DirExporter struct {
	dir string
}

func NewDirExporter(dir string) (*DirExporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &DirExporter{dir: dir}, nil
}

// Export writes the workbook and returns the file path.
func (e *DirExporter) Export(ctx context.Context, r core.Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := XLSX(r)
	if err != nil {
		return "", fmt.Errorf("render xlsx: %w", err)
	}
	path := filepath.Join(e.dir, fmt.Sprintf("report_%d_%s_%s.xlsx", r.UserID, r.StartDate, r.EndDate))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
