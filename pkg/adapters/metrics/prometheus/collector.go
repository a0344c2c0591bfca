package prometheus

import (
	"time"

	"github.com/aescanero/dapipe/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements ports.MetricsCollector using Prometheus
type Collector struct {
	pipelineRuns     *prometheus.CounterVec
	pipelineFailures *prometheus.CounterVec
	nodesExtracted   prometheus.Counter
	edgesExtracted   prometheus.Counter
	runDuration      *prometheus.HistogramVec
	activePipelines  prometheus.Gauge

	queueFiles    *prometheus.CounterVec
	queueDepth    *prometheus.GaugeVec
	scanDuration  prometheus.Histogram
	bridgeFailure prometheus.Counter
}

// NewCollector creates a collector registered with the default registry
func NewCollector() *Collector {
	return NewCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector registered with reg
func NewCollectorWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		pipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dapipe_pipeline_runs_total",
				Help: "Total number of completed pipeline runs",
			},
			[]string{"path"},
		),
		pipelineFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dapipe_pipeline_failures_total",
				Help: "Total number of failed pipeline runs and rejected queue files",
			},
			[]string{"path"},
		),
		nodesExtracted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dapipe_nodes_extracted_total",
				Help: "Total number of graph nodes extracted",
			},
		),
		edgesExtracted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dapipe_edges_extracted_total",
				Help: "Total number of graph edges extracted",
			},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dapipe_pipeline_run_duration_seconds",
				Help:    "Pipeline run duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"path"},
		),
		activePipelines: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dapipe_active_pipelines",
				Help: "Number of pipelines in the active state",
			},
		),
		queueFiles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dapipe_queue_files_total",
				Help: "Total number of queue files handled by outcome",
			},
			[]string{"outcome"},
		),
		queueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dapipe_queue_depth",
				Help: "Number of files in each queue directory",
			},
			[]string{"dir"},
		),
		scanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dapipe_queue_scan_duration_seconds",
				Help:    "Work directory scan duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
		),
		bridgeFailure: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dapipe_bridge_failures_total",
				Help: "Total number of failed bridge notifications",
			},
		),
	}
}

// RecordPipelineRun records a completed run on the given path (sync or queue)
func (c *Collector) RecordPipelineRun(path string, run domain.PipelineRunStats, duration time.Duration) {
	c.pipelineRuns.WithLabelValues(path).Inc()
	c.nodesExtracted.Add(float64(run.NodesCount))
	c.edgesExtracted.Add(float64(run.EdgesCount))
	c.runDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// RecordPipelineFailure records a failed run on the given path
func (c *Collector) RecordPipelineFailure(path string) {
	c.pipelineFailures.WithLabelValues(path).Inc()
}

// RecordQueueFile records the outcome of handling one queue file
func (c *Collector) RecordQueueFile(outcome string) {
	c.queueFiles.WithLabelValues(outcome).Inc()
}

// RecordBridgeFailure records a swallowed notification failure
func (c *Collector) RecordBridgeFailure() {
	c.bridgeFailure.Inc()
}

// RecordScan records the duration of one work directory scan
func (c *Collector) RecordScan(duration time.Duration) {
	c.scanDuration.Observe(duration.Seconds())
}

// SetActivePipelines sets the number of active pipelines
func (c *Collector) SetActivePipelines(count int) {
	c.activePipelines.Set(float64(count))
}

// SetQueueDepth sets the file count of each queue directory
func (c *Collector) SetQueueDepth(snapshot domain.QueueSnapshot) {
	c.queueDepth.WithLabelValues("pending").Set(float64(snapshot.Pending))
	c.queueDepth.WithLabelValues("processed").Set(float64(snapshot.Processed))
	c.queueDepth.WithLabelValues("failed").Set(float64(snapshot.Failed))
}
