package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snooze_syslog_messages_received_total",
		Help: "Total number of raw deliveries (TCP lines or UDP datagrams) received, labelled by transport.",
	}, []string{"transport"})

	MessagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snooze_syslog_messages_dropped_total",
		Help: "Total number of raw deliveries dropped before parsing, labelled by reason.",
	}, []string{"reason"})

	RecordsParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snooze_syslog_records_parsed_total",
		Help: "Total number of syslog records parsed, labelled by format.",
	}, []string{"syslog_type"})

	RecordsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snooze_syslog_records_skipped_total",
		Help: "Total number of empty or 'last message repeated' records skipped.",
	})

	ParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snooze_syslog_parse_failures_total",
		Help: "Total number of records that matched no format or failed to parse.",
	})

	RecordsFiltered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snooze_syslog_records_filtered_total",
		Help: "Total number of parsed records discarded by drop rules.",
	})

	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snooze_syslog_deliveries_total",
		Help: "Total number of sink deliveries, labelled by status.",
	}, []string{"status"})

	DeliveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snooze_syslog_delivery_duration_ms",
		Help:    "Sink delivery latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "snooze_syslog_queue_depth",
		Help: "Current number of items waiting in a queue.",
	}, []string{"queue"})

	OpenConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snooze_syslog_tcp_connections",
		Help: "Current number of open TCP connections.",
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snooze_syslog_raw_queue_utilization",
		Help: "Raw queue fill ratio (0-1) observed by the readiness probe.",
	})
)
