// SPDX-License-Identifier:Apache-2.0

package transport

import "github.com/prometheus/client_golang/prometheus"

var stats = metrics{
	framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "easymesh",
		Subsystem: "transport",
		Name:      "frames_sent_total",
		Help:      "Number of 1905 frames written to the wire",
	}, []string{
		"ifname",
	}),

	sendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "easymesh",
		Subsystem: "transport",
		Name:      "send_errors_total",
		Help:      "Number of frames that could not be sent",
	}, []string{
		"ifname",
	}),

	framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "easymesh",
		Subsystem: "transport",
		Name:      "frames_received_total",
		Help:      "Number of frames read from the AL interface socket",
	}, []string{
		"ifname",
	}),
}

type metrics struct {
	framesSent     *prometheus.CounterVec
	sendErrors     *prometheus.CounterVec
	framesReceived *prometheus.CounterVec
}

func init() {
	prometheus.MustRegister(stats.framesSent)
	prometheus.MustRegister(stats.sendErrors)
	prometheus.MustRegister(stats.framesReceived)
}

func (m *metrics) FrameSent(ifname string) {
	m.framesSent.WithLabelValues(ifname).Inc()
}

func (m *metrics) SendError(ifname string) {
	m.sendErrors.WithLabelValues(ifname).Inc()
}

func (m *metrics) FrameReceived(ifname string) {
	m.framesReceived.WithLabelValues(ifname).Inc()
}
