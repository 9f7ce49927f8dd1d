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
	"github.com/sparkkube/spark-cluster-operator/internal/clusterstate"
	"github.com/sparkkube/spark-cluster-operator/pkg/common"
	"github.com/sparkkube/spark-cluster-operator/pkg/util"
)

// disruptionGuard decides whether disruptive pod deletions have to be deferred
// because the cluster has applications in flight. The probe result is cached for
// the duration of one reconciliation pass.
type disruptionGuard struct {
	enabled   bool
	prober    *clusterstate.Prober
	endpoints []string

	checked bool
	busy    bool
}

// newDisruptionGuard builds the guard for one pass. Master endpoints are derived
// from the currently observed master pods; with no reachable masters the guard
// never defers, matching a cluster that cannot be running anything.
func (r *Reconciler) newDisruptionGuard(cluster *v1alpha1.SparkCluster, pods []corev1.Pod) *disruptionGuard {
	var masterPods []corev1.Pod
	for _, pod := range pods {
		if util.GetPodRole(&pod) == common.RoleMaster.String() {
			masterPods = append(masterPods, pod)
		}
	}

	return &disruptionGuard{
		enabled:   cluster.Spec.ClusterConfig.ProtectRunningApplications,
		prober:    r.prober,
		endpoints: clusterstate.MasterEndpointURLs(masterPods, cluster.Spec.GetMasterWebUIPort()),
	}
}

// deferDisruption reports whether a disruptive deletion must wait. The first call
// of a pass probes the master endpoints; subsequent calls reuse the answer.
func (g *disruptionGuard) deferDisruption(ctx context.Context) bool {
	if g == nil || !g.enabled || g.prober == nil || len(g.endpoints) == 0 {
		return false
	}
	if !g.checked {
		g.busy = len(g.prober.GetRunningApplications(ctx, g.endpoints)) > 0
		g.checked = true
	}
	return g.busy
}

// reconcileRole converges the pods of one role toward the desired topology. For
// every configuration hash the role asks for, at most one pod is created or deleted
// per pass; the next pass continues the convergence. This bounds the blast radius
// of a single pass and rate-limits scale-down.
//
// A deferred or unservable deletion skips only its own bucket; creations and other
// buckets still proceed in the same pass, and the requeue is reported through the
// returned result.
//
// Buckets observed but absent from the desired topology never reach this function:
// the classifier already redirected their pods to deletion.
func (r *Reconciler) reconcileRole(ctx context.Context, cluster *v1alpha1.SparkCluster, role common.Role, buckets map[string][]*corev1.Pod, desired map[string]int32, guard *disruptionGuard) (ctrl.Result, error) {
	logger := ctrl.LoggerFrom(ctx)

	hashes := make([]string, 0, len(desired))
	for hash := range desired {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)

	requeue := false
	for _, hash := range hashes {
		pods := buckets[hash]
		observedCount := int32(len(pods))
		desiredCount := desired[hash]

		switch {
		case observedCount > desiredCount:
			// Scaling down masters or workers kills running executors, so it
			// consults the guard. The history server holds no work.
			if role != common.RoleHistoryServer && guard.deferDisruption(ctx) {
				logger.Info("Deferring scale-down while applications are running", "role", role, "hash", hash)
				requeue = true
				continue
			}
			pod := firstDeletablePod(pods)
			if pod == nil {
				// Every excess pod is already terminating; wait for it to go away.
				requeue = true
				continue
			}
			if err := r.client.Delete(ctx, pod); err != nil && !errors.IsNotFound(err) {
				return ctrl.Result{}, newRoleGroupError(cluster.Name, role, hash, "delete pod", err)
			}
			logger.Info("Deleted excess pod", "role", role, "hash", hash, "pod", pod.Name)
			if r.metrics != nil {
				r.metrics.IncPodDelete(role)
			}
			r.recorder.Eventf(cluster, corev1.EventTypeNormal, "PodDeleted",
				"Deleted excess %s pod %s", role, pod.Name)

		case observedCount < desiredCount:
			pod, err := r.createGroupPod(ctx, cluster, role, hash)
			if err != nil {
				return ctrl.Result{}, err
			}
			logger.Info("Created pod", "role", role, "hash", hash, "pod", pod.Name)
			if r.metrics != nil {
				r.metrics.IncPodCreate(role)
			}
			r.recorder.Eventf(cluster, corev1.EventTypeNormal, "PodCreated",
				"Created %s pod %s", role, pod.Name)
		}
	}

	if requeue {
		return ctrl.Result{RequeueAfter: r.options.RequeueInterval}, nil
	}
	return ctrl.Result{}, nil
}

// createGroupPod ensures the role group's backing ConfigMaps exist and creates one
// new replica pod.
func (r *Reconciler) createGroupPod(ctx context.Context, cluster *v1alpha1.SparkCluster, role common.Role, hash string) (*corev1.Pod, error) {
	group := cluster.Spec.FindRoleGroupByHash(role, hash)
	if group == nil {
		// The hash came from the topology derived off the same spec, so a
		// missing group means the spec changed mid-pass.
		return nil, newRoleGroupError(cluster.Name, role, hash, "resolve role group", errors.NewNotFound(v1alpha1.GroupVersion.WithResource("sparkclusters").GroupResource(), hash))
	}

	configMaps, err := r.buildConfigMaps(cluster, role, hash, group)
	if err != nil {
		return nil, newRoleGroupError(cluster.Name, role, hash, "build configmaps", err)
	}
	for _, cm := range configMaps {
		if err := r.client.Create(ctx, cm); err != nil && !errors.IsAlreadyExists(err) {
			return nil, newRoleGroupError(cluster.Name, role, hash, "create configmap", err)
		}
	}

	pod, err := r.buildPod(cluster, role, hash, group)
	if err != nil {
		return nil, newRoleGroupError(cluster.Name, role, hash, "build pod", err)
	}
	if err := r.client.Create(ctx, pod); err != nil {
		return nil, newRoleGroupError(cluster.Name, role, hash, "create pod", err)
	}

	return pod, nil
}

// firstDeletablePod returns the first pod by name that is not already terminating.
// The bucket is already name-sorted by the classifier.
func firstDeletablePod(pods []*corev1.Pod) *corev1.Pod {
	for _, pod := range pods {
		if !util.IsPodTerminating(pod) {
			return pod
		}
	}
	return nil
}
