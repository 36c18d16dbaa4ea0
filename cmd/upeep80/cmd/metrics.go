/*
 * upeep80 - Universal peephole optimizer for the Intel 8080 and Zilog Z80
 *
 * Copyright upeep80 authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cmd

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/upeep80/upeep80/report"
)

const metricsNamespace = "upeep80"

type optimizeMetrics struct {
	registry    *prometheus.Registry
	files       *prometheus.CounterVec
	rewrites    *prometheus.CounterVec
	bytesSaved  *prometheus.CounterVec
	cyclesSaved *prometheus.CounterVec
	iterations  prometheus.Histogram
}

func newOptimizeMetrics() *optimizeMetrics {
	m := &optimizeMetrics{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "files_total",
				Help:      "Number of optimized files, by target and outcome.",
			},
			[]string{"target", "outcome"},
		),
		rewrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rewrites_total",
				Help:      "Number of applied rewrites, by pattern.",
			},
			[]string{"target", "pattern"},
		),
		bytesSaved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "saved_bytes_total",
				Help:      "Number of bytes saved.",
			},
			[]string{"target"},
		),
		cyclesSaved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "saved_cycles_total",
				Help:      "Number of cycles saved.",
			},
			[]string{"target"},
		),
		iterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "iterations",
				Help:      "Number of optimization passes per file.",
				Buckets:   []float64{1, 2, 3, 4, 8, 16, 32, 64},
			},
		),
	}

	m.registry.MustRegister(
		m.files,
		m.rewrites,
		m.bytesSaved,
		m.cyclesSaved,
		m.iterations,
	)

	return m
}

func fileOutcome(file report.File) string {
	switch {
	case file.Skipped != "":
		return "skipped"
	case !file.Converged:
		return "not_converged"
	case len(file.Applied) > 0:
		return "changed"
	default:
		return "unchanged"
	}
}

func (m *optimizeMetrics) observe(file report.File) {
	m.files.WithLabelValues(file.Target, fileOutcome(file)).Inc()
	for _, application := range file.Applied {
		m.rewrites.WithLabelValues(file.Target, application.Pattern).Inc()
	}
	m.bytesSaved.WithLabelValues(file.Target).Add(float64(file.BytesSaved))
	m.cyclesSaved.WithLabelValues(file.Target).Add(float64(file.CyclesSaved))
	m.iterations.Observe(float64(file.Iterations))
}

func (m *optimizeMetrics) writeTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
