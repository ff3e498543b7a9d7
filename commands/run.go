package commands

import (
	"context"
	"io"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/chain"
	"github.com/near/lake-flows-into-sql/config"
	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/retry"
	"github.com/near/lake-flows-into-sql/storage"
)

var RunCmd = &cli.Command{
	Name:  "run",
	Usage: "Stream blocks from the lake into the database.",
	Description: `Recovers the database from any interrupted block, then streams blocks from the
lake starting one above the highest stored block and writes the rows of each block
to postgres. A block is only considered stored once its row in the blocks table is
written, which always happens after every other row of the block is in place.

Blocks are read from the S3 bucket in the config unless --lake-dir points at a local
copy laid out the same way.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "name",
			Usage: "Name of this indexer, used in metrics and logs.",
		},
		&cli.Uint64Flag{
			Name:  "start-height",
			Usage: "Height to start from when the database holds no blocks.",
		},
		&cli.Uint64Flag{
			Name:  "stop-height",
			Usage: "Stop after indexing the block at `HEIGHT`.",
		},
		&cli.IntFlag{
			Name:  "concurrency",
			Usage: "Number of blocks persisted at the same time.",
		},
		&cli.StringFlag{
			Name:    "lake-dir",
			Usage:   "Read blocks from a local copy of the lake in `DIR`.",
			EnvVars: []string{"LAKEFLOW_LAKE_DIR"},
		},
		&cli.StringFlag{
			Name:    "lake-bucket",
			Usage:   "S3 `BUCKET` holding the lake.",
			EnvVars: []string{"LAKEFLOW_LAKE_BUCKET"},
		},
		&cli.StringFlag{
			Name:    "lake-region",
			Usage:   "AWS `REGION` of the lake bucket.",
			EnvVars: []string{"LAKEFLOW_LAKE_REGION"},
		},
		&cli.StringFlag{
			Name:    "lake-endpoint",
			Usage:   "Custom S3 `URL`, for example a local minio.",
			EnvVars: []string{"LAKEFLOW_LAKE_ENDPOINT"},
		},
		&cli.IntFlag{
			Name:  "prefetch-size",
			Usage: "Number of blocks fetched ahead of the writer.",
		},
		&cli.BoolFlag{
			Name:  "follow",
			Usage: "Keep waiting for new blocks once the lake is exhausted.",
		},
		&cli.DurationFlag{
			Name:  "retry-base",
			Usage: "Wait before the first retry of a failed store operation.",
		},
		&cli.DurationFlag{
			Name:  "retry-max",
			Usage: "Longest wait between retries.",
		},
		&cli.IntFlag{
			Name:  "retry-attempts",
			Usage: "Number of attempts made for each store operation.",
		},
		&cli.IntFlag{
			Name:  "max-rows-per-statement",
			Usage: "Maximum number of rows in a single insert statement.",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Read and convert blocks without writing anything.",
		},
	},
	Action: func(cctx *cli.Context) error {
		cfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		applyRunFlags(cctx, cfg)

		return runIndexer(cctx.Context, cfg, cctx.Bool("dry-run"))
	},
}

func applyRunFlags(cctx *cli.Context, cfg *config.Conf) {
	if cctx.IsSet("name") {
		cfg.Indexer.Name = cctx.String("name")
	}
	if cctx.IsSet("start-height") {
		cfg.Indexer.StartHeight = cctx.Uint64("start-height")
	}
	if cctx.IsSet("stop-height") {
		cfg.Indexer.StopHeight = cctx.Uint64("stop-height")
	}
	if cctx.IsSet("concurrency") {
		cfg.Indexer.Concurrency = cctx.Int("concurrency")
	}
	if cctx.IsSet("lake-dir") {
		cfg.Lake.Dir = cctx.String("lake-dir")
	}
	if cctx.IsSet("lake-bucket") {
		cfg.Lake.Bucket = cctx.String("lake-bucket")
	}
	if cctx.IsSet("lake-region") {
		cfg.Lake.Region = cctx.String("lake-region")
	}
	if cctx.IsSet("lake-endpoint") {
		cfg.Lake.Endpoint = cctx.String("lake-endpoint")
	}
	if cctx.IsSet("prefetch-size") {
		cfg.Lake.PrefetchSize = cctx.Int("prefetch-size")
	}
	if cctx.IsSet("follow") {
		cfg.Lake.Follow = cctx.Bool("follow")
	}
	if cctx.IsSet("retry-base") {
		cfg.Retry.Base = config.Duration(cctx.Duration("retry-base"))
	}
	if cctx.IsSet("retry-max") {
		cfg.Retry.Max = config.Duration(cctx.Duration("retry-max"))
	}
	if cctx.IsSet("retry-attempts") {
		cfg.Retry.Attempts = cctx.Int("retry-attempts")
	}
	if cctx.IsSet("max-rows-per-statement") {
		cfg.Storage.MaxRowsPerStatement = cctx.Int("max-rows-per-statement")
	}
}

func runIndexer(ctx context.Context, cfg *config.Conf, dryRun bool) error {
	rcfg := retryConfig(cfg.Retry)
	if err := rcfg.Validate(); err != nil {
		return xerrors.Errorf("retry config: %w", err)
	}
	executor := retry.NewExecutor(rcfg)

	var (
		backend storage.Backend
		unlock  func() error
	)
	if dryRun {
		log.Warnw("dry run, nothing will be written")
		backend = &storage.NullStorage{}
	} else {
		db, err := newDatabase(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		if err := db.Connect(ctx); err != nil {
			return xerrors.Errorf("connect database: %w", err)
		}
		unlock, err = db.LockIndexer(ctx)
		if err != nil {
			_ = db.Close() // nolint: errcheck
			return err
		}
		backend = db
	}

	store := storage.NewStore(backend, executor, cfg.Storage.MaxRowsPerStatement)
	defer shutdownStore(store, unlock)

	start, err := chain.Recover(ctx, store, cfg.Indexer.StartHeight)
	if err != nil {
		return xerrors.Errorf("recover: %w", err)
	}

	fetcher, err := newFetcher(ctx, cfg.Lake)
	if err != nil {
		return err
	}

	prefetch := cfg.Lake.PrefetchSize
	if prefetch < 1 {
		prefetch = lake.DefaultPrefetchSize
	}
	streamer := lake.NewStreamer(fetcher, lake.StreamerConfig{
		StartHeight:  start,
		StopHeight:   cfg.Indexer.StopHeight,
		PrefetchSize: prefetch,
		PollInterval: time.Duration(cfg.Lake.PollInterval),
		Follow:       cfg.Lake.Follow,
	}, executor)
	dispatcher := chain.NewDispatcher(chain.NewIndexer(store, cfg.Indexer.Name), cfg.Indexer.Concurrency, cfg.Indexer.Name)

	log.Infow("starting indexer", "name", cfg.Indexer.Name, "source", fetcher.Kind(), "start_height", start, "concurrency", cfg.Indexer.Concurrency)

	grp, ctx := errgroup.WithContext(ctx)
	msgs := make(chan *lake.StreamerMessage, prefetch)
	grp.Go(func() error {
		return streamer.Run(ctx, msgs)
	})
	grp.Go(func() error {
		return dispatcher.Run(ctx, msgs)
	})
	if err := grp.Wait(); err != nil {
		return xerrors.Errorf("indexer: %w", err)
	}
	log.Infow("indexer finished", "name", cfg.Indexer.Name)
	return nil
}

// shutdownStore releases the indexer lock while the pool holding its connection is still open, then closes
// the store.
func shutdownStore(store io.Closer, unlock func() error) {
	if unlock != nil {
		if err := unlock(); err != nil {
			log.Errorw("failed to release indexer lock", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		log.Errorw("failed to close store", "error", err)
	}
}

func newFetcher(ctx context.Context, cfg config.LakeConf) (lake.Fetcher, error) {
	if cfg.Dir != "" {
		f, err := lake.NewDirFetcher(cfg.Dir)
		if err != nil {
			return nil, xerrors.Errorf("open lake dir: %w", err)
		}
		return f, nil
	}
	f, err := lake.NewS3Fetcher(ctx, lake.S3Config{
		Bucket:   cfg.Bucket,
		Region:   cfg.Region,
		Endpoint: cfg.Endpoint,
	})
	if err != nil {
		return nil, xerrors.Errorf("open lake bucket: %w", err)
	}
	return f, nil
}
