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

package common

import "time"

const (
	// LabelAnnotationPrefix is the prefix of every label and annotation added by the operator.
	LabelAnnotationPrefix = "sparkcluster.sparkkube.io/"

	// LabelRole records which cluster role a pod belongs to. Pods without it cannot be
	// reasoned about and are deleted.
	LabelRole = LabelAnnotationPrefix + "role"

	// LabelConfigHash records the configuration hash of the role group a pod was built from.
	// Pods carrying a hash no longer present in the desired topology are torn down.
	LabelConfigHash = LabelAnnotationPrefix + "config-hash"

	// LabelClusterName is the name of the owning SparkCluster object.
	LabelClusterName = LabelAnnotationPrefix + "cluster-name"

	// LabelCreatedByOperator is set on every object created by the operator.
	LabelCreatedByOperator = LabelAnnotationPrefix + "created-by-operator"
)

const (
	// SparkContainerName is the name of the single container in every cluster pod.
	SparkContainerName = "spark"

	// ConfigVolumeName is the volume holding the generated configuration directory.
	ConfigVolumeName = "config-volume"

	// DataVolumeName is the volume holding the generated data directory.
	DataVolumeName = "data-volume"

	// ConfigVolumeMountPath is relative to the extracted Spark distribution.
	ConfigVolumeMountPath = "conf"

	// DataVolumeMountPath is where the history server and workers write event logs.
	DataVolumeMountPath = "/tmp/spark-events"

	// ConfigMapSuffixConfig and ConfigMapSuffixData are appended to the role group
	// object name prefix to derive the two backing ConfigMap names.
	ConfigMapSuffixConfig = "config"
	ConfigMapSuffixData   = "data"

	// SparkEnvFileName is the key of the rendered environment file in the config ConfigMap.
	SparkEnvFileName = "spark-env.sh"
)

const (
	// DefaultSparkImageRepository is used when the spec does not name an explicit image.
	DefaultSparkImageRepository = "apache/spark"

	// DefaultMasterWebUIPort is the port the Spark master serves its JSON status endpoint on.
	DefaultMasterWebUIPort int32 = 8080

	// DefaultRequeueInterval is the delay before a deferred reconciliation pass is retried.
	DefaultRequeueInterval = 5 * time.Second
)

// Metric names.
const (
	MetricSparkClusterPodCreateCount  = "spark_cluster_pod_create_count"
	MetricSparkClusterPodDeleteCount  = "spark_cluster_pod_delete_count"
	MetricSparkClusterCorruptPodCount = "spark_cluster_corrupt_pod_count"
)
