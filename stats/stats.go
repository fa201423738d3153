/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package stats collects session-level counters and exposes them both
// as a JSON dump and as Prometheus metrics, the same two surfaces
// ptp4u and sptp expose for their own counters.
package stats

import (
	"fmt"
	"sync"
	"time"

	"github.com/eclesh/welford"
	"github.com/prometheus/client_golang/prometheus"
)

// Stats implements session.Metrics and listener-level session
// accounting. All counters are guarded by one mutex: the profile's
// traffic volume (a handful of paired devices) does not justify the
// sharded atomic counters ptp4u uses for its per-packet PTP load.
type Stats struct {
	mu sync.Mutex

	sessionsConnected int64
	framesByCode      map[uint8]int64
	pdusByID          map[uint8]int64
	rejectsByReason   map[string]int64
	dispatchLatencyNs *welford.Stats

	registry *prometheus.Registry

	promSessionsConnected prometheus.Gauge
	promFrames            *prometheus.CounterVec
	promRejects           *prometheus.CounterVec
	promDispatchLatency   prometheus.Summary
}

// New returns an empty Stats, with its Prometheus collectors created
// and registered against its own registry (served by Handler).
func New() *Stats {
	s := &Stats{
		registry:          prometheus.NewRegistry(),
		framesByCode:      make(map[uint8]int64),
		pdusByID:          make(map[uint8]int64),
		rejectsByReason:   make(map[string]int64),
		dispatchLatencyNs: welford.New(),
		promSessionsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "avrcpd",
			Name:      "sessions_connected",
			Help:      "Number of AVCTP sessions currently Connected.",
		}),
		promFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "avrcpd",
			Name:      "frames_total",
			Help:      "AVCTP frames received, by AVRCP ctype/response code.",
		}, []string{"code"}),
		promRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "avrcpd",
			Name:      "rejects_total",
			Help:      "Metadata/passthrough commands answered REJECTED, by reason.",
		}, []string{"reason"}),
		promDispatchLatency: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace: "avrcpd",
			Name:      "dispatch_latency_seconds",
			Help:      "Time spent in avrcp.Dispatch per inbound frame.",
		}),
	}
	s.MustRegister(s.registry)
	return s
}

// MustRegister registers every Prometheus collector against reg. It
// panics on a duplicate registration, matching
// prometheus.MustRegister's own contract. New already registers
// against its own registry; callers only need this to additionally
// register against e.g. prometheus.DefaultRegisterer.
func (s *Stats) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(s.promSessionsConnected, s.promFrames, s.promRejects, s.promDispatchLatency)
}

// IncSessionConnected implements session.Metrics.
func (s *Stats) IncSessionConnected() {
	s.mu.Lock()
	s.sessionsConnected++
	s.mu.Unlock()
	s.promSessionsConnected.Inc()
}

// IncSessionDisconnected implements session.Metrics.
func (s *Stats) IncSessionDisconnected() {
	s.mu.Lock()
	s.sessionsConnected--
	s.mu.Unlock()
	s.promSessionsConnected.Dec()
}

// IncFrameByCode implements session.Metrics.
func (s *Stats) IncFrameByCode(code uint8) {
	s.mu.Lock()
	s.framesByCode[code]++
	s.mu.Unlock()
	s.promFrames.WithLabelValues(fmt.Sprintf("0x%02x", code)).Inc()
}

// IncPDU records one dispatched Metadata Transfer PDU by its PDU ID.
func (s *Stats) IncPDU(pduID uint8) {
	s.mu.Lock()
	s.pdusByID[pduID]++
	s.mu.Unlock()
}

// IncReject implements session.Metrics.
func (s *Stats) IncReject(reason string) {
	s.mu.Lock()
	s.rejectsByReason[reason]++
	s.mu.Unlock()
	s.promRejects.WithLabelValues(reason).Inc()
}

// ObserveDispatchLatency implements session.Metrics. It feeds the
// running mean/variance estimator behind the "dispatch_latency_*_ns"
// JSON fields, the same welford.Stats algorithm fbclock/ptp/c4u use
// for offset/drift statistics, and observes the duration on the
// dispatch_latency_seconds Prometheus summary.
func (s *Stats) ObserveDispatchLatency(d time.Duration) {
	s.mu.Lock()
	s.dispatchLatencyNs.Add(float64(d.Nanoseconds()))
	s.mu.Unlock()
	s.promDispatchLatency.Observe(d.Seconds())
}

// Snapshot is the JSON-serializable shape served at "/".
type Snapshot struct {
	SessionsConnected    int64            `json:"sessions_connected"`
	FramesByCode         map[string]int64 `json:"frames_by_code"`
	PDUsByID             map[string]int64 `json:"pdus_by_id"`
	RejectsByReason      map[string]int64 `json:"rejects_by_reason"`
	DispatchLatencyMeanNs   float64 `json:"dispatch_latency_mean_ns"`
	DispatchLatencyStddevNs float64 `json:"dispatch_latency_stddev_ns"`
	Process                 map[string]uint64 `json:"process"`
}

// Snapshot copies the current counters into a JSON-friendly shape.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Snapshot{
		SessionsConnected:       s.sessionsConnected,
		FramesByCode:            make(map[string]int64, len(s.framesByCode)),
		PDUsByID:                make(map[string]int64, len(s.pdusByID)),
		RejectsByReason:         make(map[string]int64, len(s.rejectsByReason)),
		DispatchLatencyMeanNs:   s.dispatchLatencyNs.Mean(),
		DispatchLatencyStddevNs: s.dispatchLatencyNs.Stddev(),
		Process:                 collectProcessStats(),
	}
	for code, n := range s.framesByCode {
		out.FramesByCode[fmt.Sprintf("0x%02x", code)] = n
	}
	for id, n := range s.pdusByID {
		out.PDUsByID[fmt.Sprintf("0x%02x", id)] = n
	}
	for reason, n := range s.rejectsByReason {
		out.RejectsByReason[reason] = n
	}
	return out
}
