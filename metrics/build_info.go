package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

const unknownLabel = "unknown"

// RegisterBuildInfo 注册常量为 1 的 beats_build_info，标签携带服务名、版本与 Go 版本。
// 重复调用只保留第一次的标签。
func (m *Metrics) RegisterBuildInfo(serviceName, version string) {
	if m == nil || m.BuildInfo != nil {
		return
	}
	m.BuildInfo = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "beats_build_info",
		Help: "Build information of the range tree service",
	}, []string{"service", "version", "go_version"})

	m.BuildInfo.WithLabelValues(orUnknown(serviceName), orUnknown(version), runtime.Version()).Set(1)
}

func orUnknown(v string) string {
	if v == "" {
		return unknownLabel
	}
	return v
}
