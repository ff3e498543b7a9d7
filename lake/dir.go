package lake

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/xerrors"
)

var _ Fetcher = (*DirFetcher)(nil)

// DirFetcher reads blocks from a local copy of a lake.
type DirFetcher struct {
	root string
}

func NewDirFetcher(root string) (*DirFetcher, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, xerrors.Errorf("lake directory: %w", err)
	}
	if !fi.IsDir() {
		return nil, xerrors.Errorf("lake directory %s is not a directory", root)
	}
	return &DirFetcher{root: root}, nil
}

func (d *DirFetcher) Kind() string {
	return "dir"
}

func (d *DirFetcher) ListBlocks(ctx context.Context, from uint64, limit int) ([]uint64, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, xerrors.Errorf("list lake directory: %w", err)
	}

	var heights []uint64
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		h, err := ParseHeightPrefix(e.Name())
		if err != nil {
			log.Debugw("skipping unexpected folder", "dir", d.root, "name", e.Name())
			continue
		}
		if h >= from {
			heights = append(heights, h)
		}
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })
	if limit > 0 && len(heights) > limit {
		heights = heights[:limit]
	}
	return heights, nil
}

func (d *DirFetcher) FetchMessage(ctx context.Context, height uint64) (*StreamerMessage, error) {
	return assembleMessage(ctx, height, d.read)
}

func (d *DirFetcher) read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(d.root, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, xerrors.Errorf("%s: %w", key, ErrNotFound)
	}
	return b, err
}
