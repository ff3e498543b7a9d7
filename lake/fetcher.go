package lake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

var log = logging.Logger("lakeflow/lake")

// ErrNotFound is returned when an object of a block is missing from the lake.
var ErrNotFound = errors.New("object not found")

// A Fetcher reads blocks from a lake. Every block is stored under a folder named after its height, zero padded
// to twelve digits, holding block.json and one shard_<id>.json per chunk of the block.
type Fetcher interface {
	// ListBlocks returns at most limit heights, in ascending order, of the blocks stored at or above from.
	ListBlocks(ctx context.Context, from uint64, limit int) ([]uint64, error)

	// FetchMessage reads the block at height together with all of its shards.
	FetchMessage(ctx context.Context, height uint64) (*StreamerMessage, error)

	// Kind names the source for metrics and logs.
	Kind() string
}

// HeightPrefix is the name of the folder holding the block at height.
func HeightPrefix(height uint64) string {
	return fmt.Sprintf("%012d", height)
}

func BlockKey(height uint64) string {
	return HeightPrefix(height) + "/block.json"
}

func ShardKey(height uint64, shardID uint64) string {
	return fmt.Sprintf("%s/shard_%d.json", HeightPrefix(height), shardID)
}

// ParseHeightPrefix parses a folder name, with or without its trailing slash, into a height.
func ParseHeightPrefix(prefix string) (uint64, error) {
	p := strings.TrimSuffix(prefix, "/")
	if len(p) != 12 {
		return 0, xerrors.Errorf("lake folder %q is not a twelve digit height", prefix)
	}
	h, err := strconv.ParseUint(p, 10, 64)
	if err != nil {
		return 0, xerrors.Errorf("lake folder %q: %w", prefix, err)
	}
	return h, nil
}

type readFunc func(ctx context.Context, key string) ([]byte, error)

// assembleMessage reads block.json for height, then every shard of the block concurrently.
func assembleMessage(ctx context.Context, height uint64, read readFunc) (*StreamerMessage, error) {
	raw, err := read(ctx, BlockKey(height))
	if err != nil {
		return nil, xerrors.Errorf("read block %d: %w", height, err)
	}
	msg := &StreamerMessage{}
	if err := json.Unmarshal(raw, &msg.Block); err != nil {
		return nil, xerrors.Errorf("decode block %d: %w", height, err)
	}
	if msg.Block.Header.Height != height {
		return nil, xerrors.Errorf("block stored under height %d claims height %d", height, msg.Block.Header.Height)
	}

	msg.Shards = make([]IndexerShard, len(msg.Block.Chunks))
	grp, gctx := errgroup.WithContext(ctx)
	for i := range msg.Shards {
		i := i
		grp.Go(func() error {
			key := ShardKey(height, uint64(i))
			raw, err := read(gctx, key)
			if err != nil {
				return xerrors.Errorf("read %s: %w", key, err)
			}
			if err := json.Unmarshal(raw, &msg.Shards[i]); err != nil {
				return xerrors.Errorf("decode %s: %w", key, err)
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return msg, nil
}
