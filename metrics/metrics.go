// Copyright 2023 The Parascan Authors
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

// Package metrics exposes Prometheus instrumentation for a running scan
// pipeline: round counters, emission counters, pending job gauges, and the
// live tree count, following the same promauto wrapping pattern the teacher
// uses for its own index writer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespaceScan = "parascan"

// Recorder wraps the counters and gauges a driver of scan.Forest reports
// against every round.
type Recorder struct {
	rounds       prometheus.Counter
	emissions    prometheus.Counter
	dataAdmitted prometheus.Counter
	jobsApplied  prometheus.Counter
	errors       prometheus.Counter
	pendingJobs  prometheus.Gauge
	forestTrees  prometheus.Gauge
	seqNo        prometheus.Gauge
}

// NewRecorder creates the counters and gauges and registers them with the
// default Prometheus registry.
func NewRecorder() *Recorder {
	r := Recorder{
		rounds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceScan,
			Name:      "rounds_total",
			Help:      "number of rounds applied to the forest",
		}),
		emissions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceScan,
			Name:      "emissions_total",
			Help:      "number of aggregate results emitted",
		}),
		dataAdmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceScan,
			Name:      "data_admitted_total",
			Help:      "number of base data items admitted",
		}),
		jobsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceScan,
			Name:      "jobs_applied_total",
			Help:      "number of completed jobs applied",
		}),
		errors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceScan,
			Name:      "round_errors_total",
			Help:      "number of rounds that failed validation",
		}),
		pendingJobs: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceScan,
			Name:      "pending_jobs",
			Help:      "number of jobs currently pending across the forest",
		}),
		forestTrees: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceScan,
			Name:      "forest_trees",
			Help:      "number of live trees in the forest",
		}),
		seqNo: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceScan,
			Name:      "job_sequence_number",
			Help:      "current job sequence number",
		}),
	}
	return &r
}

// RoundApplied records a successful round: the data and jobs it consumed,
// whether it emitted a result, the pending job count and tree count left
// behind, and the new sequence number.
func (r *Recorder) RoundApplied(dataCount, jobsCount int, emitted bool, pending, trees int, seqNo uint64) {
	r.rounds.Inc()
	r.dataAdmitted.Add(float64(dataCount))
	r.jobsApplied.Add(float64(jobsCount))
	if emitted {
		r.emissions.Inc()
	}
	r.pendingJobs.Set(float64(pending))
	r.forestTrees.Set(float64(trees))
	r.seqNo.Set(float64(seqNo))
}

// RoundFailed records a round that was rejected by validation.
func (r *Recorder) RoundFailed() {
	r.errors.Inc()
}
