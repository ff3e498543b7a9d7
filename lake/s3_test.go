package lake_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/testutil"
)

// fakeBucket serves objects from memory the way a lake bucket lists and returns them.
type fakeBucket struct {
	objects map[string][]byte
	lists   []*s3.ListObjectsV2Input
}

func newFakeBucket(t *testing.T, msgs ...*lake.StreamerMessage) *fakeBucket {
	b := &fakeBucket{objects: map[string][]byte{}}
	for _, m := range msgs {
		raw, err := json.Marshal(m.Block)
		require.NoError(t, err)
		b.objects[lake.BlockKey(m.Height())] = raw
		for i, s := range m.Shards {
			raw, err := json.Marshal(s)
			require.NoError(t, err)
			b.objects[lake.ShardKey(m.Height(), uint64(i))] = raw
		}
	}
	return b
}

func (b *fakeBucket) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	raw, ok := b.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(raw))}, nil
}

func (b *fakeBucket) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	b.lists = append(b.lists, in)
	seen := map[string]bool{}
	var prefixes []string
	for k := range b.objects {
		if k <= aws.ToString(in.StartAfter) {
			continue
		}
		p := k[:strings.Index(k, "/")+1]
		if !seen[p] {
			seen[p] = true
			prefixes = append(prefixes, p)
		}
	}
	sort.Strings(prefixes)
	if in.MaxKeys != nil && len(prefixes) > int(*in.MaxKeys) {
		prefixes = prefixes[:*in.MaxKeys]
	}

	out := &s3.ListObjectsV2Output{}
	for _, p := range prefixes {
		out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(p)})
	}
	return out, nil
}

func TestS3FetcherListBlocks(t *testing.T) {
	bucket := newFakeBucket(t, testutil.NewEmptyMessage(83030085), testutil.NewEmptyMessage(83030086), testutil.NewMessage(83030088))
	f := lake.NewS3FetcherWithClient(bucket, "near-lake-data-mainnet")

	heights, err := f.ListBlocks(context.Background(), 83030086, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{83030086, 83030088}, heights)

	require.Len(t, bucket.lists, 1)
	in := bucket.lists[0]
	assert.Equal(t, "near-lake-data-mainnet", aws.ToString(in.Bucket))
	assert.Equal(t, "/", aws.ToString(in.Delimiter))
	assert.Equal(t, "000083030086", aws.ToString(in.StartAfter))
	assert.Equal(t, types.RequestPayerRequester, in.RequestPayer)
}

func TestS3FetcherFetchMessage(t *testing.T) {
	want := testutil.NewMessage(83030088)
	f := lake.NewS3FetcherWithClient(newFakeBucket(t, want), "near-lake-data-mainnet")

	got, err := f.FetchMessage(context.Background(), 83030088)
	require.NoError(t, err)
	assertSameMessage(t, want, got)

	_, err = f.FetchMessage(context.Background(), 83030087)
	assert.ErrorIs(t, err, lake.ErrNotFound)
}
