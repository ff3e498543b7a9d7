package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/near/lake-flows-into-sql/commands"
)

var log = logging.Logger("lakeflow/main")

func main() {
	if err := logging.SetLogLevel("*", "info"); err != nil {
		log.Fatal(err)
	}

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			EnvVars:     []string{"GOLOG_LOG_LEVEL"},
			Value:       "info",
			Usage:       "Set the default log level for all loggers to `LEVEL`",
			Destination: &commands.LakeflowLogFlags.LogLevel,
		},
		&cli.StringFlag{
			Name:        "log-level-named",
			EnvVars:     []string{"LAKEFLOW_LOG_LEVEL_NAMED"},
			Value:       "",
			Usage:       "A comma delimited list of named loggers and log levels formatted as name:level, for example 'logger1:debug,logger2:info'",
			Destination: &commands.LakeflowLogFlags.LogLevelNamed,
		},
		&cli.BoolFlag{
			Name:        "tracing",
			EnvVars:     []string{"LAKEFLOW_TRACING"},
			Value:       false,
			Usage:       "Enable tracing",
			Destination: &commands.LakeflowTracingFlags.Enabled,
		},
		&cli.StringFlag{
			Name:        "jaeger-service-name",
			EnvVars:     []string{"LAKEFLOW_JAEGER_SERVICE_NAME"},
			Value:       "lakeflow",
			Usage:       "Name of the service reported to Jaeger",
			Destination: &commands.LakeflowTracingFlags.ServiceName,
		},
		&cli.StringFlag{
			Name:        "jaeger-provider-url",
			EnvVars:     []string{"LAKEFLOW_JAEGER_PROVIDER_URL"},
			Value:       "http://localhost:14268/api/traces",
			Usage:       "Sets the Jaeger collector `URL`",
			Destination: &commands.LakeflowTracingFlags.ProviderURL,
		},
		&cli.Float64Flag{
			Name:        "jaeger-sampler-ratio",
			EnvVars:     []string{"LAKEFLOW_JAEGER_SAMPLER_RATIO"},
			Usage:       "If less than 1 probabilistic metrics will be used.",
			Value:       1,
			Destination: &commands.LakeflowTracingFlags.JaegerSamplerParam,
		},
		&cli.StringFlag{
			Name:        "prometheus-port",
			EnvVars:     []string{"LAKEFLOW_PROMETHEUS_PORT"},
			Usage:       "Serve prometheus /metrics and pprof on `ADDRESS`, for example :9991.",
			Destination: &commands.LakeflowMetricFlags.PrometheusPort,
		},
	}
	flags = append(flags, commands.ConfigFlags...)

	app := &cli.App{
		Name:  "lakeflow",
		Usage: "Index NEAR Lake blocks into postgres",
		Flags: flags,
		Before: func(*cli.Context) error {
			return commands.SetupObservability()
		},
		Commands: []*cli.Command{
			commands.InitCmd,
			commands.MigrateCmd,
			commands.RunCmd,
			commands.StatusCmd,
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Errorf("%+v", err)
		cancel()
		os.Exit(1)
	}
}
