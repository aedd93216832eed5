// Package buildinfo carries release identifiers stamped by the linker:
//
//	go build -ldflags "-X github.com/m3rciful/teambot/core/buildinfo.Version=v0.3.0 \
//	  -X github.com/m3rciful/teambot/core/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

import (
	"log/slog"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Version = "dev"
	Commit  = "local"
	// Date is RFC3339; empty for local builds.
	Date = ""
)

// Attrs returns the build identifiers as log attributes.
func Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", Version),
		slog.String("build_commit", Commit),
		slog.String("build_time", Date),
	}
}

// Collector exports a constant teambot_build_info gauge labelled with the
// build identifiers.
func Collector() prometheus.Collector {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "teambot",
		Name:      "build_info",
		Help:      "Build identifiers of the running binary.",
		ConstLabels: prometheus.Labels{
			"version":    Version,
			"commit":     Commit,
			"go_version": runtime.Version(),
		},
	})
	g.Set(1)
	return g
}
