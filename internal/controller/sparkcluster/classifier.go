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
	"context"
	"sort"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/sparkkube/spark-cluster-operator/api/v1alpha1"
	"github.com/sparkkube/spark-cluster-operator/pkg/common"
	"github.com/sparkkube/spark-cluster-operator/pkg/util"
)

// classifiedInventory groups the observed pods of one cluster by role and
// configuration hash. It is rebuilt from scratch on every reconciliation pass.
// Every pod in it carries a valid role and a hash present in the current desired
// topology; everything else was redirected to deletion during classification.
type classifiedInventory map[common.Role]map[string][]*corev1.Pod

// podCount returns the number of classified pods of one role.
func (inv classifiedInventory) podCount(role common.Role) int {
	count := 0
	for _, pods := range inv[role] {
		count += len(pods)
	}
	return count
}

// classifyPods partitions the observed pods into (role, hash) buckets and deletes
// pods that cannot be reasoned about: pods missing an identity label, pods with an
// unknown role, and pods whose hash was superseded by a newer desired topology.
// Every pod in the batch is processed; only a failed delete call aborts the pass,
// because the inventory would be unknown afterwards.
//
// Stale-hash pods are the one disruptive case: they belong to a configuration that
// is being rolled, so their deletion consults the disruption guard. A deferred
// deletion is reported through the requeue flag and the pod stays out of the
// inventory either way.
func (r *Reconciler) classifyPods(ctx context.Context, cluster *v1alpha1.SparkCluster, pods []corev1.Pod, topology map[common.Role]map[string]int32, guard *disruptionGuard) (classifiedInventory, bool, error) {
	logger := ctrl.LoggerFrom(ctx)

	sort.Slice(pods, func(i, j int) bool {
		return pods[i].Name < pods[j].Name
	})

	inventory := make(classifiedInventory)
	requeue := false

	for i := range pods {
		pod := &pods[i]
		roleValue := util.GetPodRole(pod)
		hash := util.GetPodConfigHash(pod)

		if roleValue == "" || hash == "" {
			logger.Error(nil, "Deleting pod with missing identity labels", "pod", pod.Name)
			if err := r.deleteInvalidPod(ctx, cluster, pod, "MissingIdentityLabels"); err != nil {
				return nil, false, err
			}
			continue
		}

		role, err := common.ParseRole(roleValue)
		if err != nil {
			logger.Error(err, "Deleting pod with an invalid role label", "pod", pod.Name, "role", roleValue)
			if err := r.deleteInvalidPod(ctx, cluster, pod, "InvalidRole"); err != nil {
				return nil, false, err
			}
			continue
		}

		if _, ok := topology[role][hash]; !ok {
			if guard.deferDisruption(ctx) {
				logger.Info("Deferring deletion of outdated pod while applications are running", "pod", pod.Name, "hash", hash)
				requeue = true
				continue
			}
			logger.Error(nil, "Deleting pod with an outdated configuration hash", "pod", pod.Name, "hash", hash)
			if err := r.deleteInvalidPod(ctx, cluster, pod, "OutdatedConfigHash"); err != nil {
				return nil, false, err
			}
			continue
		}

		if inventory[role] == nil {
			inventory[role] = make(map[string][]*corev1.Pod)
		}
		inventory[role][hash] = append(inventory[role][hash], pod)
	}

	return inventory, requeue, nil
}

// deleteInvalidPod removes a pod the classifier flagged. Pods already terminating
// are left alone; a concurrent deletion is not an error.
func (r *Reconciler) deleteInvalidPod(ctx context.Context, cluster *v1alpha1.SparkCluster, pod *corev1.Pod, reason string) error {
	if util.IsPodTerminating(pod) {
		return nil
	}
	if err := r.client.Delete(ctx, pod); err != nil && !errors.IsNotFound(err) {
		return newRoleGroupError(cluster.Name, common.Role(util.GetPodRole(pod)), util.GetPodConfigHash(pod), "delete invalid pod", err)
	}
	if r.metrics != nil {
		r.metrics.IncCorruptPod()
	}
	r.recorder.Eventf(cluster, corev1.EventTypeWarning, "InvalidPodDeleted",
		"Deleted pod %s: %s", pod.Name, reason)
	return nil
}
