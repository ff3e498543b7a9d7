package v1_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/near/lake-flows-into-sql/model"
	"github.com/near/lake-flows-into-sql/schemas"
	v1 "github.com/near/lake-flows-into-sql/schemas/v1"
	"github.com/near/lake-flows-into-sql/storage"
)

func tableDefinition(t *testing.T, base, schema, name string) string {
	t.Helper()
	start := strings.Index(base, "CREATE TABLE IF NOT EXISTS "+schema+"."+name+" (")
	require.GreaterOrEqual(t, start, 0, "no definition for table %s", name)
	end := strings.Index(base[start:], ");")
	require.Greater(t, end, 0)
	return base[start : start+end]
}

func TestBaseDefinesEveryTable(t *testing.T) {
	base, err := v1.GetBase(schemas.Config{})
	require.NoError(t, err)
	assert.NotContains(t, base, "SET search_path")

	for _, tbl := range storage.Tables {
		def := tableDefinition(t, base, "public", tbl.Name)
		for _, c := range tbl.Columns {
			assert.Contains(t, def, "\n    "+c+" ", "table %s is missing column %s", tbl.Name, c)
		}
	}
}

func TestBaseUsesConfiguredSchema(t *testing.T) {
	base, err := v1.GetBase(schemas.Config{SchemaName: "lake"})
	require.NoError(t, err)
	assert.Contains(t, base, "SET search_path TO lake,public;")
	tableDefinition(t, base, "lake", "blocks")
}

func TestPatchesAreSequential(t *testing.T) {
	latest := v1.Version()
	assert.Equal(t, v1.MajorVersion, latest.Major)
	assert.Equal(t, model.Version{Major: 1, Patch: 2}, latest)

	coll, err := v1.GetPatches(schemas.Config{SchemaName: "lake"})
	require.NoError(t, err)
	migs := coll.Migrations()
	require.Len(t, migs, latest.Patch)
	for i, m := range migs {
		assert.Equal(t, int64(i+1), m.Version)
	}
}
