package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// xrcfgCollector implements prometheus.Collector, reading the store on
// each scrape.
type xrcfgCollector struct {
	srv *Server

	interfaces    *prometheus.Desc
	subInterfaces *prometheus.Desc
	domains       *prometheus.Desc
	historySize   *prometheus.Desc
	candidate     *prometheus.Desc
	eventSeq      *prometheus.Desc
}

func newCollector(srv *Server) *xrcfgCollector {
	return &xrcfgCollector{
		srv: srv,

		interfaces: prometheus.NewDesc(
			"xrcfg_interfaces",
			"Interfaces in the active configuration.",
			[]string{"declared"}, nil,
		),
		subInterfaces: prometheus.NewDesc(
			"xrcfg_l2transport_subinterfaces",
			"l2transport sub-interfaces in the active configuration.",
			nil, nil,
		),
		domains: prometheus.NewDesc(
			"xrcfg_bridge_domains",
			"Bridge-domains in the active configuration.",
			nil, nil,
		),
		historySize: prometheus.NewDesc(
			"xrcfg_history_entries",
			"Rollback snapshots held in memory.",
			nil, nil,
		),
		candidate: prometheus.NewDesc(
			"xrcfg_candidate_pending",
			"1 when an uncommitted candidate change exists.",
			nil, nil,
		),
		eventSeq: prometheus.NewDesc(
			"xrcfg_events_total",
			"Events recorded in the event buffer.",
			nil, nil,
		),
	}
}

func (c *xrcfgCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.interfaces
	ch <- c.subInterfaces
	ch <- c.domains
	ch <- c.historySize
	ch <- c.candidate
	ch <- c.eventSeq
}

func (c *xrcfgCollector) Collect(ch chan<- prometheus.Metric) {
	store := c.srv.store
	if store != nil {
		m := store.Model()
		var declared, implicit, subifs int
		for _, iface := range m.Interfaces {
			if iface.Declared {
				declared++
			} else {
				implicit++
			}
			subifs += len(iface.SubInterfaces)
		}
		ch <- prometheus.MustNewConstMetric(c.interfaces, prometheus.GaugeValue, float64(declared), "true")
		ch <- prometheus.MustNewConstMetric(c.interfaces, prometheus.GaugeValue, float64(implicit), "false")
		ch <- prometheus.MustNewConstMetric(c.subInterfaces, prometheus.GaugeValue, float64(subifs))
		ch <- prometheus.MustNewConstMetric(c.domains, prometheus.GaugeValue, float64(len(m.Domains)))
		ch <- prometheus.MustNewConstMetric(c.historySize, prometheus.GaugeValue, float64(len(store.History())))

		var pending float64
		if store.IsDirty() {
			pending = 1
		}
		ch <- prometheus.MustNewConstMetric(c.candidate, prometheus.GaugeValue, pending)
	}

	if c.srv.eventBuf != nil {
		var seq uint64
		if latest := c.srv.eventBuf.Latest(1); len(latest) > 0 {
			seq = latest[0].Seq
		}
		ch <- prometheus.MustNewConstMetric(c.eventSeq, prometheus.CounterValue, float64(seq))
	}
}

// requestMetrics are updated by the handlers.
type requestMetrics struct {
	requests         *prometheus.CounterVec
	validationErrors *prometheus.CounterVec
	generatedLines   prometheus.Histogram
	commits          prometheus.Counter
}

func newRequestMetrics() *requestMetrics {
	return &requestMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xrcfg_requests_total",
			Help: "API operations by result.",
		}, []string{"op", "result"}),
		validationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xrcfg_validation_errors_total",
			Help: "Rejected change inputs by error kind.",
		}, []string{"kind"}),
		generatedLines: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "xrcfg_generated_lines",
			Help:    "Command lines per generated change.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xrcfg_commits_total",
			Help: "Commits applied to the active configuration.",
		}),
	}
}

func (m *requestMetrics) register(reg prometheus.Registerer) {
	reg.MustRegister(m.requests, m.validationErrors, m.generatedLines, m.commits)
}
