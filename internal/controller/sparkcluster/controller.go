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
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	"github.com/sparkkube/spark-cluster-operator/api/v1alpha1"
	"github.com/sparkkube/spark-cluster-operator/internal/clusterstate"
	"github.com/sparkkube/spark-cluster-operator/internal/metrics"
	"github.com/sparkkube/spark-cluster-operator/pkg/common"
	"github.com/sparkkube/spark-cluster-operator/pkg/util"
)

// Options defines the options of the SparkCluster reconciler.
type Options struct {
	// Namespaces is the list of namespaces that should be watched.
	Namespaces []string

	// RequeueInterval is the delay before a deferred pass is retried.
	RequeueInterval time.Duration

	// Metrics collects reconciliation action counters, nil when metrics are disabled.
	Metrics *metrics.SparkClusterMetrics
}

// Reconciler reconciles SparkCluster objects.
type Reconciler struct {
	scheme   *runtime.Scheme
	client   client.Client
	recorder record.EventRecorder
	prober   *clusterstate.Prober
	metrics  *metrics.SparkClusterMetrics
	options  Options
}

// Reconciler implements the reconcile.Reconciler interface.
var _ reconcile.Reconciler = &Reconciler{}

// NewReconciler creates a new SparkCluster Reconciler.
func NewReconciler(
	scheme *runtime.Scheme,
	client client.Client,
	recorder record.EventRecorder,
	prober *clusterstate.Prober,
	options Options,
) *Reconciler {
	if options.RequeueInterval <= 0 {
		options.RequeueInterval = common.DefaultRequeueInterval
	}
	return &Reconciler{
		scheme:   scheme,
		client:   client,
		recorder: recorder,
		prober:   prober,
		metrics:  options.Metrics,
		options:  options,
	}
}

// SetupWithManager sets up the SparkCluster reconciler with the manager.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager, options controller.Options) error {
	kind := "SparkCluster"

	options.LogConstructor = util.NewLogConstructor(mgr.GetLogger(), kind)

	return ctrl.NewControllerManagedBy(mgr).
		For(&v1alpha1.SparkCluster{}).
		Owns(
			&corev1.Pod{},
			builder.WithPredicates(
				util.NewLabelPredicate(map[string]string{
					common.LabelCreatedByOperator: "true",
				}),
			),
		).
		Owns(
			&corev1.ConfigMap{},
			builder.WithPredicates(
				util.NewLabelPredicate(map[string]string{
					common.LabelCreatedByOperator: "true",
				}),
			),
		).
		WithEventFilter(util.NewNamespacePredicate(r.options.Namespaces)).
		WithOptions(options).
		Complete(r)
}

// +kubebuilder:rbac:groups=,resources=events,verbs=create;update;patch
// +kubebuilder:rbac:groups=,resources=configmaps,verbs=get;list;watch;create;update;delete
// +kubebuilder:rbac:groups=,resources=pods,verbs=get;list;watch;create;delete
// +kubebuilder:rbac:groups=spark.sparkkube.io,resources=sparkclusters,verbs=get;list;watch;update;patch
// +kubebuilder:rbac:groups=spark.sparkkube.io,resources=sparkclusters/status,verbs=get;update;patch

// Reconcile implements reconcile.TypedReconciler. One invocation is a full pass:
// fetch the observed pods, classify them, then converge every role toward the
// desired topology. Each pass is computed from a fresh snapshot; no state survives
// between passes beyond what the next pass re-derives from its inputs.
func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (reconcile.Result, error) {
	old := &v1alpha1.SparkCluster{}
	if err := r.client.Get(ctx, req.NamespacedName, old); err != nil {
		if errors.IsNotFound(err) {
			return reconcile.Result{}, nil
		}
		return reconcile.Result{}, err
	}

	logger := ctrl.LoggerFrom(ctx)

	cluster := old.DeepCopy()
	if !cluster.DeletionTimestamp.IsZero() {
		logger.Info("Skip reconciling SparkCluster in terminating state")
		return ctrl.Result{}, nil
	}

	logger.Info("Reconciling SparkCluster")

	topology := cluster.Spec.GetDesiredTopology()

	pods, err := r.listClusterPods(ctx, cluster)
	if err != nil {
		return ctrl.Result{}, err
	}

	guard := r.newDisruptionGuard(cluster, pods)

	// Classification fully completes, including the deletions it triggers, before
	// any role is reconciled. The reconciler never sees a pod that was flagged
	// invalid.
	inventory, requeue, err := r.classifyPods(ctx, cluster, pods, topology, guard)
	if err != nil {
		return ctrl.Result{}, err
	}

	result := ctrl.Result{}
	if requeue {
		result.RequeueAfter = r.options.RequeueInterval
	}

	for _, role := range common.Roles {
		desired := topology[role]
		if len(desired) == 0 {
			// Role not configured, e.g. no history server.
			continue
		}
		roleResult, err := r.reconcileRole(ctx, cluster, role, inventory[role], desired, guard)
		if err != nil {
			return ctrl.Result{}, err
		}
		// A deferred deletion inside a role never stops the remaining roles from
		// converging; only the requeue is carried forward.
		if roleResult.RequeueAfter > 0 {
			result.RequeueAfter = r.options.RequeueInterval
		}
	}

	if err := r.updateSparkClusterStatus(ctx, old, cluster, topology, inventory); err != nil {
		if errors.IsConflict(err) {
			logger.V(1).Info("conflict updating SparkCluster status")
			return ctrl.Result{Requeue: true}, nil
		}
		return ctrl.Result{}, fmt.Errorf("failed to update SparkCluster status: %w", err)
	}

	return result, nil
}

// listClusterPods fetches a fresh snapshot of all pods the operator created for the
// given cluster. Pods are never cached across passes.
func (r *Reconciler) listClusterPods(ctx context.Context, cluster *v1alpha1.SparkCluster) ([]corev1.Pod, error) {
	podList := &corev1.PodList{}
	if err := r.client.List(ctx,
		podList,
		client.InNamespace(cluster.Namespace),
		client.MatchingLabels(GetCommonLabels(cluster)),
	); err != nil {
		return nil, fmt.Errorf("failed to list pods for SparkCluster %s/%s: %w", cluster.Namespace, cluster.Name, err)
	}
	return podList.Items, nil
}

// updateSparkClusterStatus recomputes the per-role counts and writes the status if
// it changed.
func (r *Reconciler) updateSparkClusterStatus(ctx context.Context, old *v1alpha1.SparkCluster, cluster *v1alpha1.SparkCluster, topology map[common.Role]map[string]int32, inventory classifiedInventory) error {
	roles := make(map[string]v1alpha1.RoleStatus)
	allReady := true
	for _, role := range common.Roles {
		desired, ok := topology[role]
		if !ok {
			continue
		}
		var desiredCount int32
		for _, count := range desired {
			desiredCount += count
		}
		var readyCount int32
		for _, pods := range inventory[role] {
			for _, pod := range pods {
				if util.IsPodReady(pod) {
					readyCount++
				}
			}
		}
		if readyCount != desiredCount {
			allReady = false
		}
		roles[role.String()] = v1alpha1.RoleStatus{
			Desired: desiredCount,
			Ready:   readyCount,
		}
	}

	cluster.Status.Roles = roles
	if allReady {
		cluster.Status.Phase = v1alpha1.SparkClusterPhaseRunning
	} else {
		cluster.Status.Phase = v1alpha1.SparkClusterPhaseReconciling
	}

	// Skip updating if the status is not changed.
	if equality.Semantic.DeepEqual(old.Status, cluster.Status) {
		return nil
	}

	cluster.Status.LastUpdateTime = metav1.Now()
	if err := r.client.Status().Update(ctx, cluster); err != nil {
		return err
	}

	ctrl.LoggerFrom(ctx).Info("Updated SparkCluster status", "phase", cluster.Status.Phase, "roles", cluster.Status.Roles)
	return nil
}
