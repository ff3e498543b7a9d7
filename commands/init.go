package commands

import (
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/config"
)

var InitCmd = &cli.Command{
	Name:  "init",
	Usage: "Write a default config file unless one already exists.",
	Action: func(cctx *cli.Context) error {
		path := cctx.String("config")
		if err := config.EnsureExists(path); err != nil {
			return xerrors.Errorf("ensuring config is present at %q: %w", path, err)
		}
		log.Infof("config file at %s", path)
		return nil
	},
}
