package v1

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/go-pg/migrations/v8"

	"github.com/near/lake-flows-into-sql/model"
	"github.com/near/lake-flows-into-sql/schemas"
)

const MajorVersion = 1

func init() {
	schemas.RegisterSchema(MajorVersion)
}

// GetBase renders the base schema, the tables every patch builds on.
func GetBase(cfg schemas.Config) (string, error) {
	tmpl, err := template.New("base").Parse(BaseTemplate)
	if err != nil {
		return "", fmt.Errorf("parse base template: %w", err)
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, cfg); err != nil {
		return "", fmt.Errorf("execute base template: %w", err)
	}
	return buf.String(), nil
}

func GetPatches(cfg schemas.Config) (*migrations.Collection, error) {
	return patches.Collection(cfg)
}

func Version() model.Version {
	return model.Version{
		Major: MajorVersion,
		Patch: len(patches.pm),
	}
}

var patches = NewPatchList()

type patch struct {
	seq  int
	tmpl *template.Template
}

type patchList struct {
	pm map[int]patch
}

func NewPatchList() patchList {
	return patchList{map[int]patch{}}
}

// Register adds a patch to the patch list. This should be called in an init function.
func (pl *patchList) Register(seq int, text string) {
	if seq <= 0 {
		panic(fmt.Sprintf("invalid patch number: %d", seq))
	}
	if _, exists := pl.pm[seq]; exists {
		panic(fmt.Sprintf("duplicate patch registered: %d", seq))
	}

	tmpl, err := template.New("patch").Parse(text)
	if err != nil {
		panic(fmt.Sprintf("parse patch template: %v", err))
	}
	pl.pm[seq] = patch{seq: seq, tmpl: tmpl}
}

// Collection renders every patch into a go-pg migration. Patches must be numbered from 1 without gaps.
func (pl *patchList) Collection(cfg schemas.Config) (*migrations.Collection, error) {
	count := len(pl.pm)
	for i := 1; i <= count; i++ {
		if _, exists := pl.pm[i]; !exists {
			return nil, fmt.Errorf("missing patch %d", i)
		}
	}

	migs := make([]*migrations.Migration, 0, count)
	for i := 1; i <= count; i++ {
		var buf strings.Builder
		if err := pl.pm[i].tmpl.Execute(&buf, cfg); err != nil {
			return nil, fmt.Errorf("execute patch template %d: %w", i, err)
		}
		sql := buf.String()

		migs = append(migs, &migrations.Migration{
			Version: int64(i),
			UpTx:    true,
			Up: func(db migrations.DB) error {
				_, err := db.Exec(sql)
				return err
			},
		})
	}

	coll := migrations.NewCollection(migs...)
	coll.SetTableName(cfg.Schema() + ".gopg_migrations")
	coll.DisableSQLAutodiscover(true)
	return coll, nil
}
