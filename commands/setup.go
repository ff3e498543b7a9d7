package commands

import (
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"contrib.go.opencensus.io/exporter/prometheus"
	logging "github.com/ipfs/go-log/v2"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opencensus.io/stats/view"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/bridge/opencensus"

	"github.com/near/lake-flows-into-sql/metrics"
)

var log = logging.Logger("lakeflow/commands")

type LakeflowLogOpts struct {
	LogLevel      string
	LogLevelNamed string
}

var LakeflowLogFlags LakeflowLogOpts

type LakeflowTracingOpts struct {
	Enabled            bool
	ServiceName        string
	ProviderURL        string
	JaegerSamplerParam float64
}

var LakeflowTracingFlags LakeflowTracingOpts

type LakeflowMetricOpts struct {
	PrometheusPort string
}

var LakeflowMetricFlags LakeflowMetricOpts

func setupLogging(flags LakeflowLogOpts) error {
	ll := flags.LogLevel
	if err := logging.SetLogLevel("*", ll); err != nil {
		return fmt.Errorf("set log level: %w", err)
	}

	llnamed := flags.LogLevelNamed
	if llnamed != "" {
		for _, llname := range strings.Split(llnamed, ",") {
			parts := strings.Split(llname, ":")
			if len(parts) != 2 {
				return fmt.Errorf("invalid named log level format: %q", llname)
			}
			if err := logging.SetLogLevel(parts[0], parts[1]); err != nil {
				return fmt.Errorf("set named log level %q to %q: %w", parts[0], parts[1], err)
			}
		}
	}

	return nil
}

func setupMetrics(flags LakeflowMetricOpts) error {
	if flags.PrometheusPort == "" {
		return nil
	}

	registry := prom.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pe, err := prometheus.NewExporter(prometheus.Options{
		Namespace: "lakeflow",
		Registry:  registry,
	})
	if err != nil {
		return err
	}

	// register prometheus with opencensus
	view.RegisterExporter(pe)
	view.SetReportingPeriod(2 * time.Second)

	if err := view.Register(metrics.DefaultViews...); err != nil {
		return err
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", pe)
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		mux.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		mux.Handle("/debug/pprof/heap", pprof.Handler("heap"))
		log.Infof("serving metrics on %s", flags.PrometheusPort)
		if err := http.ListenAndServe(flags.PrometheusPort, mux); err != nil {
			log.Fatalf("Failed to run Prometheus /metrics endpoint: %v", err)
		}
	}()
	return nil
}

func setupTracing(flags LakeflowTracingOpts) error {
	if !flags.Enabled {
		return nil
	}

	tp, err := metrics.NewJaegerTraceProvider(flags.ServiceName, flags.ProviderURL, flags.JaegerSamplerParam)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	otel.SetTracerProvider(tp)
	// go-pg and opencensus instrumented code report through the same provider.
	opencensus.InstallTraceBridge(opencensus.WithTracerProvider(tp))

	return nil
}

// SetupObservability configures logging, metrics and tracing from the global flags.
func SetupObservability() error {
	if err := setupLogging(LakeflowLogFlags); err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	if err := setupMetrics(LakeflowMetricFlags); err != nil {
		return fmt.Errorf("setup metrics: %w", err)
	}
	if err := setupTracing(LakeflowTracingFlags); err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	return nil
}
