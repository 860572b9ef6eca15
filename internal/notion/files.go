package notion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Snapshot layout inside a FileSource root.
const (
	DatabaseFile = "database.json"
	BlocksDir    = "blocks"
)

// FileSource serves a Source from an offline snapshot directory:
//
//	<root>/database.json       array of page records
//	<root>/blocks/<id>.json    array of child block records of <id>
//
// Each file may also hold a full list envelope ({"results": [...]}). Every
// call answers with a single page. A block without a children file has no
// children.
type FileSource struct {
	root string
}

var _ Source = (*FileSource)(nil)

// NewFileSource creates a FileSource rooted at dir. The directory must exist.
func NewFileSource(dir string) (*FileSource, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("notion: resolve snapshot dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("notion: stat snapshot dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("notion: snapshot dir is not a directory: %s", abs)
	}
	return &FileSource{root: abs}, nil
}

// Root returns the absolute snapshot directory.
func (f *FileSource) Root() string { return f.root }

// QueryPublished implements Source. Filtering and ordering mirror the remote query.
func (f *FileSource) QueryPublished(ctx context.Context, _ string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	records, err := f.readRecords(DatabaseFile)
	if err != nil {
		return Page{}, err
	}
	published := records[:0:0]
	for _, r := range records {
		if r.Get("properties.Published.checkbox").Bool() {
			published = append(published, r)
		}
	}
	sort.SliceStable(published, func(i, j int) bool {
		return publishedAt(published[i]) > publishedAt(published[j])
	})
	return Page{Results: published}, nil
}

// ListChildren implements Source.
func (f *FileSource) ListChildren(ctx context.Context, blockID, _ string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if blockID == "" || strings.ContainsAny(blockID, `/\`) {
		return Page{}, fmt.Errorf("notion: invalid block id %q", blockID)
	}
	records, err := f.readRecords(filepath.Join(BlocksDir, blockID+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return Page{}, nil
	}
	if err != nil {
		return Page{}, err
	}
	return Page{Results: records}, nil
}

func (f *FileSource) readRecords(rel string) ([]gjson.Result, error) {
	abs, err := f.safePath(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("notion: read %s: %w", rel, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("notion: %s is not valid json", rel)
	}
	doc := gjson.ParseBytes(data)
	if doc.IsArray() {
		return doc.Array(), nil
	}
	page, err := parsePage(data)
	if err != nil {
		return nil, fmt.Errorf("notion: %s: %w", rel, err)
	}
	return page.Results, nil
}

// safePath resolves rel against the snapshot root and rejects any result
// that escapes it.
func (f *FileSource) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("notion: absolute paths not allowed: %s", rel)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("notion: path escapes snapshot root: %s", rel)
	}
	return abs, nil
}

// publishedAt is the sort key of a page record: the PublishedAt date, else created_time.
func publishedAt(page gjson.Result) string {
	if start := page.Get("properties.PublishedAt.date.start").String(); start != "" {
		return start
	}
	return page.Get("created_time").String()
}
