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

package sparkcluster

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sparkkube/spark-cluster-operator/api/v1alpha1"
	"github.com/sparkkube/spark-cluster-operator/pkg/common"
)

// GeneratePodName generates a fresh pod name for a role group. All pod names follow
// the pattern <cluster name>-<role>-<config hash>-<unique suffix>.
func GeneratePodName(cluster *v1alpha1.SparkCluster, role common.Role, hash string) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%s-%s-%s", cluster.Name, role, hash, suffix)
}

// GetObjectNamePrefix returns the name prefix shared by all generated objects of a
// role group: <cluster name>-<role>-<config hash>.
func GetObjectNamePrefix(cluster *v1alpha1.SparkCluster, role common.Role, hash string) string {
	return fmt.Sprintf("%s-%s-%s", cluster.Name, role, hash)
}

// GetConfigConfigMapName returns the name of the ConfigMap backing the generated
// configuration directory of a role group. All replicas of the group share it.
func GetConfigConfigMapName(cluster *v1alpha1.SparkCluster, role common.Role, hash string) string {
	return fmt.Sprintf("%s-%s", GetObjectNamePrefix(cluster, role, hash), common.ConfigMapSuffixConfig)
}

// GetDataConfigMapName returns the name of the ConfigMap backing the generated data
// directory of a role group.
func GetDataConfigMapName(cluster *v1alpha1.SparkCluster, role common.Role, hash string) string {
	return fmt.Sprintf("%s-%s", GetObjectNamePrefix(cluster, role, hash), common.ConfigMapSuffixData)
}

// GetCommonLabels returns the labels set on every object created for the cluster.
func GetCommonLabels(cluster *v1alpha1.SparkCluster) map[string]string {
	return map[string]string{
		common.LabelClusterName:       cluster.Name,
		common.LabelCreatedByOperator: "true",
	}
}

// GetGroupLabels returns the labels set on every pod of a role group, including the
// two identity labels the classifier relies on.
func GetGroupLabels(cluster *v1alpha1.SparkCluster, role common.Role, hash string) map[string]string {
	labels := GetCommonLabels(cluster)
	labels[common.LabelRole] = role.String()
	labels[common.LabelConfigHash] = hash
	return labels
}
