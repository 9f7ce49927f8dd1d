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

package util

import (
	corev1 "k8s.io/api/core/v1"

	"github.com/sparkkube/spark-cluster-operator/pkg/common"
)

// IsCreatedByOperator returns whether the given pod was created by the operator.
func IsCreatedByOperator(pod *corev1.Pod) bool {
	return pod.Labels[common.LabelCreatedByOperator] == "true"
}

// GetPodRole returns the raw role label value of a pod. The value still has to be
// parsed with common.ParseRole.
func GetPodRole(pod *corev1.Pod) string {
	return pod.Labels[common.LabelRole]
}

// GetPodConfigHash returns the configuration hash label value of a pod.
func GetPodConfigHash(pod *corev1.Pod) string {
	return pod.Labels[common.LabelConfigHash]
}

// IsPodReady returns whether the given pod is running and ready.
func IsPodReady(pod *corev1.Pod) bool {
	for _, condition := range pod.Status.Conditions {
		if condition.Type == corev1.PodReady && condition.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}

// IsPodTerminating returns whether the given pod has a deletion timestamp set.
func IsPodTerminating(pod *corev1.Pod) bool {
	return !pod.DeletionTimestamp.IsZero()
}
