package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/efris-reports/constants"
	"github.com/joseph-ayodele/efris-reports/internal/pipeline"
)

// DefaultMaxFileSize bounds a single document read into memory.
const DefaultMaxFileSize = 64 << 20

var _ Collector = (*FSIngestor)(nil)

// FSIngestor reads documents from the local filesystem.
type FSIngestor struct {
	Logger      *slog.Logger
	MaxFileSize int64
}

func NewFSIngestor(logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Logger: logger, MaxFileSize: DefaultMaxFileSize}
}

// ReadPath loads one PDF file as a pipeline item.
func (i *FSIngestor) ReadPath(path string) (pipeline.Item, FileResult, error) {
	out := FileResult{Path: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return pipeline.Item{}, out, fmt.Errorf("abs path: %w", err)
	}
	out.Path = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return pipeline.Item{}, out, fmt.Errorf("unsupported or missing extension: %q", ext)
	}

	st, err := os.Stat(abs)
	if err != nil {
		return pipeline.Item{}, out, fmt.Errorf("stat: %w", err)
	}
	out.Size = st.Size()
	limit := i.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	if st.Size() > limit {
		return pipeline.Item{}, out, fmt.Errorf("file is %d bytes, limit is %d", st.Size(), limit)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return pipeline.Item{}, out, fmt.Errorf("read: %w", err)
	}
	sum := sha256.Sum256(content)
	out.HashHex = hex.EncodeToString(sum[:])

	return pipeline.Item{Name: filepath.Base(abs), Content: content}, out, nil
}

// Collect walks paths, skips hidden entries if requested, and reads each
// PDF it finds. Unreadable files are reported in Files and do not stop the
// walk; only a cancelled ctx or an empty path list returns an error.
func (i *FSIngestor) Collect(ctx context.Context, paths []string, skipHidden bool) (Collection, error) {
	var col Collection
	if len(paths) == 0 {
		return col, errors.New("at least one path is required")
	}
	seen := map[string]string{} // content hash -> first path

	add := func(path string) {
		col.Stats.Matched++
		item, fr, err := i.ReadPath(path)
		if err != nil {
			fr.Err = err.Error()
			col.Files = append(col.Files, fr)
			col.Stats.Failed++
			i.Logger.Warn("ingest.file.unreadable", "path", path, "error", err)
			return
		}
		if first, ok := seen[fr.HashHex]; ok {
			fr.SameAs = first
			i.Logger.Info("ingest.file.same_content", "path", fr.Path, "same_as", first)
		} else {
			seen[fr.HashHex] = fr.Path
		}
		col.Items = append(col.Items, item)
		col.Files = append(col.Files, fr)
		col.Stats.Collected++
	}

	for _, root := range paths {
		if strings.TrimSpace(root) == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return col, err
		}
		st, err := os.Stat(root)
		if err != nil {
			col.Stats.Scanned++
			col.Stats.Failed++
			col.Files = append(col.Files, FileResult{Path: root, Err: err.Error()})
			i.Logger.Warn("ingest.path.unreadable", "path", root, "error", err)
			continue
		}
		if !st.IsDir() {
			// Explicitly named files are taken whatever their visibility.
			col.Stats.Scanned++
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			col.Stats.Scanned++
			if walkErr != nil {
				col.Files = append(col.Files, FileResult{Path: path, Err: walkErr.Error()})
				col.Stats.Failed++
				return nil
			}
			if skipHidden && path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return col, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	i.Logger.Info("ingest.collect.done",
		"scanned", col.Stats.Scanned,
		"matched", col.Stats.Matched,
		"collected", col.Stats.Collected,
		"failed", col.Stats.Failed,
	)
	return col, nil
}
