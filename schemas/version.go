package schemas

// LatestMajor is the highest major schema version registered by a schema package.
var LatestMajor = 0

func RegisterSchema(major int) {
	if major > LatestMajor {
		LatestMajor = major
	}
}

const DefaultSchemaName = "public"

// Config is passed to the base schema and patch templates.
type Config struct {
	SchemaName string // postgresql schema holding the indexer's tables
}

// Schema returns the configured schema name or the default one.
func (c Config) Schema() string {
	if c.SchemaName == "" {
		return DefaultSchemaName
	}
	return c.SchemaName
}
