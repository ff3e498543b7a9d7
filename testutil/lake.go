package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/near/lake-flows-into-sql/lake"
)

// WriteLake stores msgs under dir in the lake layout, one folder per block.
func WriteLake(tb testing.TB, dir string, msgs ...*lake.StreamerMessage) {
	tb.Helper()
	for _, m := range msgs {
		h := m.Height()
		require.NoError(tb, os.MkdirAll(filepath.Join(dir, lake.HeightPrefix(h)), 0o755))
		writeJSON(tb, filepath.Join(dir, filepath.FromSlash(lake.BlockKey(h))), m.Block)
		for i, s := range m.Shards {
			writeJSON(tb, filepath.Join(dir, filepath.FromSlash(lake.ShardKey(h, uint64(i)))), s)
		}
	}
}

func writeJSON(tb testing.TB, path string, v interface{}) {
	b, err := json.Marshal(v)
	require.NoError(tb, err)
	require.NoError(tb, os.WriteFile(path, b, 0o644))
}
