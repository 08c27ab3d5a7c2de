// Package metrics khai báo các Prometheus collector của dịch vụ.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SlotTransitions đếm các thao tác vòng đời theo trigger và kết quả.
	SlotTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "valet",
		Name:      "slot_transitions_total",
		Help:      "Số thao tác vòng đời chỗ đỗ theo trigger và kết quả",
	}, []string{"trigger", "result"})

	PollFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "valet",
		Name:      "aggregate_poll_failures_total",
		Help:      "Số lần poll endpoint tổng hợp thất bại",
	})

	PollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "valet",
		Name:      "aggregate_poll_duration_seconds",
		Help:      "Thời gian một lần poll endpoint tổng hợp",
		Buckets:   prometheus.DefBuckets,
	})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "valet",
		Name:      "notifications_total",
		Help:      "Thông báo gửi khách hàng theo kết quả",
	}, []string{"result"})

	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "valet",
		Name:      "websocket_clients",
		Help:      "Số kết nối WebSocket đang mở",
	})

	CarRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "valet",
		Name:      "car_requests_total",
		Help:      "Yêu cầu lấy xe từ khách hàng theo nguồn và kết quả",
	}, []string{"source", "result"})
)
