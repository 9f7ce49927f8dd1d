/*
Copyright 2025 The spark-cluster-operator authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/sparkkube/spark-cluster-operator/pkg/common"
)

var logger = ctrl.Log.WithName("metrics")

// SparkClusterMetrics counts the reconciliation actions taken against cluster pods.
type SparkClusterMetrics struct {
	podCreateCount  *prometheus.CounterVec
	podDeleteCount  *prometheus.CounterVec
	corruptPodCount prometheus.Counter
}

// NewSparkClusterMetrics creates the SparkCluster reconciliation metrics.
func NewSparkClusterMetrics() *SparkClusterMetrics {
	return &SparkClusterMetrics{
		podCreateCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: common.MetricSparkClusterPodCreateCount,
				Help: "Total number of cluster pods created, by role",
			},
			[]string{"role"},
		),
		podDeleteCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: common.MetricSparkClusterPodDeleteCount,
				Help: "Total number of excess cluster pods deleted, by role",
			},
			[]string{"role"},
		),
		corruptPodCount: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: common.MetricSparkClusterCorruptPodCount,
				Help: "Total number of pods deleted because of missing, invalid or outdated identity labels",
			},
		),
	}
}

// Register registers the metrics with the controller-runtime metrics registry.
func (m *SparkClusterMetrics) Register() {
	if err := metrics.Registry.Register(m.podCreateCount); err != nil {
		logger.Error(err, "Failed to register spark cluster metric", "name", common.MetricSparkClusterPodCreateCount)
	}
	if err := metrics.Registry.Register(m.podDeleteCount); err != nil {
		logger.Error(err, "Failed to register spark cluster metric", "name", common.MetricSparkClusterPodDeleteCount)
	}
	if err := metrics.Registry.Register(m.corruptPodCount); err != nil {
		logger.Error(err, "Failed to register spark cluster metric", "name", common.MetricSparkClusterCorruptPodCount)
	}
}

// IncPodCreate counts one created pod.
func (m *SparkClusterMetrics) IncPodCreate(role common.Role) {
	m.podCreateCount.WithLabelValues(role.String()).Inc()
}

// IncPodDelete counts one deleted excess pod.
func (m *SparkClusterMetrics) IncPodDelete(role common.Role) {
	m.podDeleteCount.WithLabelValues(role.String()).Inc()
}

// IncCorruptPod counts one pod removed during classification.
func (m *SparkClusterMetrics) IncCorruptPod() {
	m.corruptPodCount.Inc()
}
