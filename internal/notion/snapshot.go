package notion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// SnapshotStats summarizes a WriteSnapshot run.
type SnapshotStats struct {
	Pages  int
	Blocks int
}

// WriteSnapshot copies every published page of src, and the full block tree
// under each, into dir using the FileSource layout. Existing files are
// replaced atomically.
func WriteSnapshot(ctx context.Context, src Source, dir string, logger *slog.Logger) (SnapshotStats, error) {
	var stats SnapshotStats
	if err := os.MkdirAll(filepath.Join(dir, BlocksDir), 0o755); err != nil {
		return stats, fmt.Errorf("notion: mkdir snapshot: %w", err)
	}

	pages, err := collect(ctx, func(cursor string) (Page, error) {
		return src.QueryPublished(ctx, cursor)
	})
	if err != nil {
		return stats, err
	}
	if err := writeAtomic(filepath.Join(dir, DatabaseFile), joinRaw(pages)); err != nil {
		return stats, err
	}
	stats.Pages = len(pages)

	var walk func(id string) error
	walk = func(id string) error {
		children, err := collect(ctx, func(cursor string) (Page, error) {
			return src.ListChildren(ctx, id, cursor)
		})
		if err != nil {
			return err
		}
		if err := writeAtomic(filepath.Join(dir, BlocksDir, id+".json"), joinRaw(children)); err != nil {
			return err
		}
		stats.Blocks += len(children)
		for _, child := range children {
			if child.Get("has_children").Bool() {
				if err := walk(child.Get("id").String()); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, p := range pages {
		id := p.Get("id").String()
		if id == "" {
			continue
		}
		if err := walk(id); err != nil {
			return stats, fmt.Errorf("notion: snapshot page %s: %w", id, err)
		}
		logger.Debug("snapshot: page written", slog.String("id", id))
	}
	return stats, nil
}

func collect(ctx context.Context, next func(cursor string) (Page, error)) ([]gjson.Result, error) {
	var out []gjson.Result
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := next(cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Results...)
		if !page.HasMore {
			return out, nil
		}
		cursor = page.NextCursor
	}
}

func joinRaw(records []gjson.Result) []byte {
	parts := make([]string, len(records))
	for i, r := range records {
		parts[i] = r.Raw
	}
	return []byte("[" + strings.Join(parts, ",") + "]")
}

// writeAtomic writes content via tmp file, fsync and rename.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".folio-tmp-*")
	if err != nil {
		return fmt.Errorf("notion: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("notion: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("notion: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("notion: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("notion: rename: %w", err)
	}
	success = true
	return nil
}
