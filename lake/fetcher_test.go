package lake_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/testutil"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "000083030086/block.json", lake.BlockKey(83030086))
	assert.Equal(t, "000083030086/shard_3.json", lake.ShardKey(83030086, 3))

	h, err := lake.ParseHeightPrefix("000083030086/")
	require.NoError(t, err)
	assert.EqualValues(t, 83030086, h)

	for _, bad := range []string{"83030086/", "00008303008x/", "", "0000830300860/"} {
		_, err := lake.ParseHeightPrefix(bad)
		assert.Error(t, err, bad)
	}
}

func assertSameMessage(t *testing.T, want, got *lake.StreamerMessage) {
	wb, err := json.Marshal(want)
	require.NoError(t, err)
	gb, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(wb), string(gb))
}

func TestDirFetcher(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteLake(t, dir, testutil.NewMessage(10), testutil.NewEmptyMessage(11), testutil.NewMessage(13))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "not-a-block"), 0o755))

	f, err := lake.NewDirFetcher(dir)
	require.NoError(t, err)
	ctx := context.Background()

	heights, err := f.ListBlocks(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 11, 13}, heights)

	heights, err = f.ListBlocks(ctx, 11, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{11}, heights)

	heights, err = f.ListBlocks(ctx, 12, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{13}, heights)

	msg, err := f.FetchMessage(ctx, 10)
	require.NoError(t, err)
	assertSameMessage(t, testutil.NewMessage(10), msg)

	_, err = f.FetchMessage(ctx, 12)
	assert.ErrorIs(t, err, lake.ErrNotFound)
}

func TestDirFetcherMissingShard(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteLake(t, dir, testutil.NewMessage(10))
	require.NoError(t, os.Remove(filepath.Join(dir, filepath.FromSlash(lake.ShardKey(10, 0)))))

	f, err := lake.NewDirFetcher(dir)
	require.NoError(t, err)
	_, err = f.FetchMessage(context.Background(), 10)
	assert.ErrorIs(t, err, lake.ErrNotFound)
}

func TestNewDirFetcherRequiresDirectory(t *testing.T) {
	_, err := lake.NewDirFetcher(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
