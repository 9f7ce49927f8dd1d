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
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/sparkkube/spark-cluster-operator/api/v1alpha1"
	"github.com/sparkkube/spark-cluster-operator/pkg/common"
)

// buildPod builds a new pod for one replica of a role group. The pod carries the
// identity labels the classifier relies on, an owner reference to the cluster, and
// two ConfigMap-backed volumes for the generated configuration and data directories.
func (r *Reconciler) buildPod(cluster *v1alpha1.SparkCluster, role common.Role, hash string, group *v1alpha1.RoleGroupSpec) (*corev1.Pod, error) {
	env := []corev1.EnvVar{
		{
			// Keep the Spark launch script in the foreground so the container
			// does not exit after daemonizing.
			Name:  "SPARK_NO_DAEMONIZE",
			Value: "true",
		},
	}
	env = append(env, group.Env...)

	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      GeneratePodName(cluster, role, hash),
			Namespace: cluster.Namespace,
			Labels:    GetGroupLabels(cluster, role, hash),
		},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{
				{
					Name:    common.SparkContainerName,
					Image:   cluster.Spec.GetImage(),
					Command: []string{role.StartCommand()},
					Env:     env,
					VolumeMounts: []corev1.VolumeMount{
						{
							Name:      common.ConfigVolumeName,
							MountPath: common.ConfigVolumeMountPath,
						},
						{
							Name:      common.DataVolumeName,
							MountPath: common.DataVolumeMountPath,
						},
					},
				},
			},
			Volumes: []corev1.Volume{
				{
					Name: common.ConfigVolumeName,
					VolumeSource: corev1.VolumeSource{
						ConfigMap: &corev1.ConfigMapVolumeSource{
							LocalObjectReference: corev1.LocalObjectReference{
								Name: GetConfigConfigMapName(cluster, role, hash),
							},
						},
					},
				},
				{
					Name: common.DataVolumeName,
					VolumeSource: corev1.VolumeSource{
						ConfigMap: &corev1.ConfigMapVolumeSource{
							LocalObjectReference: corev1.LocalObjectReference{
								Name: GetDataConfigMapName(cluster, role, hash),
							},
						},
					},
				},
			},
		},
	}

	if err := ctrl.SetControllerReference(cluster, pod, r.scheme); err != nil {
		return nil, fmt.Errorf("failed to set controller reference: %w", err)
	}

	return pod, nil
}

// buildConfigMaps builds the two ConfigMaps backing a role group's volumes: the
// -config map holds the rendered spark-env.sh, the -data map starts out empty and
// exists so every replica mounts the same writable data directory definition.
func (r *Reconciler) buildConfigMaps(cluster *v1alpha1.SparkCluster, role common.Role, hash string, group *v1alpha1.RoleGroupSpec) ([]*corev1.ConfigMap, error) {
	configMap := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      GetConfigConfigMapName(cluster, role, hash),
			Namespace: cluster.Namespace,
			Labels:    GetGroupLabels(cluster, role, hash),
		},
		Data: map[string]string{
			common.SparkEnvFileName: renderSparkEnv(group.Config),
		},
	}

	dataMap := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      GetDataConfigMapName(cluster, role, hash),
			Namespace: cluster.Namespace,
			Labels:    GetGroupLabels(cluster, role, hash),
		},
	}

	configMaps := []*corev1.ConfigMap{configMap, dataMap}
	for _, cm := range configMaps {
		if err := ctrl.SetControllerReference(cluster, cm, r.scheme); err != nil {
			return nil, fmt.Errorf("failed to set controller reference: %w", err)
		}
	}

	return configMaps, nil
}

// renderSparkEnv renders role group properties into spark-env.sh content with
// deterministic key order.
func renderSparkEnv(config map[string]string) string {
	keys := make([]string, 0, len(config))
	for key := range config {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&sb, "%s=%s\n", key, config[key])
	}
	return sb.String()
}
