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

package v1alpha1

import (
	"fmt"
	"sort"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	"github.com/sparkkube/spark-cluster-operator/pkg/common"
	"github.com/sparkkube/spark-cluster-operator/pkg/util"
)

func init() {
	SchemeBuilder.Register(&SparkCluster{}, &SparkClusterList{})
}

// +kubebuilder:object:root=true
// +kubebuilder:resource:scope=Namespaced,shortName=sparkclu,singular=sparkcluster
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:JSONPath=.metadata.creationTimestamp,name=Age,type=date
// +kubebuilder:printcolumn:JSONPath=.status.phase,name="Phase",type=string

// SparkCluster is the Schema for the sparkclusters API.
type SparkCluster struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata"`

	Spec   SparkClusterSpec   `json:"spec"`
	Status SparkClusterStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// SparkClusterList contains a list of SparkCluster.
type SparkClusterList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []SparkCluster `json:"items"`
}

// SparkClusterSpec defines the desired state of SparkCluster.
type SparkClusterSpec struct {
	// SparkVersion is the version of the Spark distribution the cluster pods run.
	SparkVersion string `json:"sparkVersion"`

	// Image is an explicit container image for all cluster pods. If unset the image is
	// derived from the default repository and SparkVersion.
	// +optional
	Image *string `json:"image,omitempty"`

	// ClusterConfig carries cluster-wide settings shared by all roles.
	// +optional
	ClusterConfig ClusterConfig `json:"clusterConfig,omitempty"`

	// Master is the Spark master role specification.
	Master RoleSpec `json:"master"`

	// Worker is the Spark worker role specification.
	Worker RoleSpec `json:"worker"`

	// HistoryServer is the Spark history server role specification. The role is
	// skipped entirely when unset.
	// +optional
	HistoryServer *RoleSpec `json:"historyServer,omitempty"`
}

// ClusterConfig carries cluster-wide settings shared by all roles.
type ClusterConfig struct {
	// MasterWebUIPort is the port the master serves its web UI and JSON status endpoint on.
	// +optional
	// +kubebuilder:validation:Minimum=1
	MasterWebUIPort *int32 `json:"masterWebUIPort,omitempty"`

	// ProtectRunningApplications defers disruptive pod deletions while the cluster has
	// applications in the RUNNING state.
	// +optional
	ProtectRunningApplications bool `json:"protectRunningApplications,omitempty"`
}

// RoleSpec is the specification of one cluster role.
type RoleSpec struct {
	// RoleGroups maps a group name to its specification. All pods of a group share one
	// configuration and are interchangeable replicas.
	RoleGroups map[string]RoleGroupSpec `json:"roleGroups"`
}

// RoleGroupSpec is the specification of one configuration variant of a role.
type RoleGroupSpec struct {
	// Instances is the desired number of replicas of this group.
	// +kubebuilder:validation:Minimum=0
	Instances int32 `json:"instances"`

	// Config carries spark-env.sh style properties rendered into the group's
	// configuration ConfigMap. Changing it rolls the group's pods.
	// +optional
	Config map[string]string `json:"config,omitempty"`

	// Env is a list of additional environment variables for the group's pods.
	// +optional
	Env []corev1.EnvVar `json:"env,omitempty"`
}

// SparkClusterStatus defines the observed state of SparkCluster.
type SparkClusterStatus struct {
	// Represents the latest available observations of the cluster's current state.
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`

	// Phase is a high-level summary of the cluster state.
	Phase SparkClusterPhase `json:"phase,omitempty"`

	// Roles maps a role name to its observed replica counts.
	// +optional
	Roles map[string]RoleStatus `json:"roles,omitempty"`

	// LastUpdateTime is the time the operator last updated this status.
	LastUpdateTime metav1.Time `json:"lastUpdateTime,omitempty"`
}

// RoleStatus reports the replica counts of one role.
type RoleStatus struct {
	// Desired is the total number of instances the spec asks for across all role groups.
	Desired int32 `json:"desired"`

	// Ready is the number of pods of this role that are running and ready.
	Ready int32 `json:"ready"`
}

// SparkClusterPhase represents the current phase of a SparkCluster.
type SparkClusterPhase string

// All possible phases of a SparkCluster.
const (
	SparkClusterPhaseNew         SparkClusterPhase = ""
	SparkClusterPhaseReconciling SparkClusterPhase = "Reconciling"
	SparkClusterPhaseRunning     SparkClusterPhase = "Running"
)

// GetImage returns the container image for the cluster pods.
func (s *SparkClusterSpec) GetImage() string {
	if s.Image != nil && *s.Image != "" {
		return *s.Image
	}
	return fmt.Sprintf("%s:%s", common.DefaultSparkImageRepository, s.SparkVersion)
}

// GetMasterWebUIPort returns the configured master web UI port or the default.
func (s *SparkClusterSpec) GetMasterWebUIPort() int32 {
	if s.ClusterConfig.MasterWebUIPort != nil {
		return *s.ClusterConfig.MasterWebUIPort
	}
	return common.DefaultMasterWebUIPort
}

// GetRoleSpec returns the specification of the given role, or nil if the role is
// not configured.
func (s *SparkClusterSpec) GetRoleSpec(role common.Role) *RoleSpec {
	switch role {
	case common.RoleMaster:
		return &s.Master
	case common.RoleWorker:
		return &s.Worker
	case common.RoleHistoryServer:
		return s.HistoryServer
	}
	return nil
}

// GetDesiredTopology derives the desired replica count per role and configuration
// hash from the spec. Two role groups that hash identically are interchangeable, so
// their instance counts are summed.
func (s *SparkClusterSpec) GetDesiredTopology() map[common.Role]map[string]int32 {
	topology := make(map[common.Role]map[string]int32)
	for _, role := range common.Roles {
		roleSpec := s.GetRoleSpec(role)
		if roleSpec == nil {
			continue
		}
		hashed := make(map[string]int32, len(roleSpec.RoleGroups))
		for _, group := range roleSpec.RoleGroups {
			hashed[s.GroupConfigHash(role, group)] += group.Instances
		}
		topology[role] = hashed
	}
	return topology
}

// FindRoleGroupByHash returns the role group of the given role whose configuration
// hashes to the given value, or nil if no such group exists. Group names are visited
// in sorted order so the lookup is deterministic when two groups hash identically.
func (s *SparkClusterSpec) FindRoleGroupByHash(role common.Role, hash string) *RoleGroupSpec {
	roleSpec := s.GetRoleSpec(role)
	if roleSpec == nil {
		return nil
	}
	names := make([]string, 0, len(roleSpec.RoleGroups))
	for name := range roleSpec.RoleGroups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		group := roleSpec.RoleGroups[name]
		if s.GroupConfigHash(role, group) == hash {
			return &group
		}
	}
	return nil
}

// GroupConfigHash computes the configuration hash of a role group. Pods carrying the
// same hash are interchangeable replicas. Instances are deliberately excluded so that
// scaling a group does not roll its pods; the image is included so that a version
// change does.
func (s *SparkClusterSpec) GroupConfigHash(role common.Role, group RoleGroupSpec) string {
	hashData := struct {
		Image  string            `json:"image"`
		Role   string            `json:"role"`
		Config map[string]string `json:"config,omitempty"`
		Env    []corev1.EnvVar   `json:"env,omitempty"`
	}{
		Image:  s.GetImage(),
		Role:   role.String(),
		Config: group.Config,
		Env:    group.Env,
	}

	// yaml.Marshal emits map keys in sorted order, which keeps the hash deterministic.
	hashBytes, err := yaml.Marshal(hashData)
	if err != nil {
		// Marshalling plain maps and EnvVars cannot fail.
		panic(err)
	}

	hasher := util.NewHash32()
	_, _ = hasher.Write(hashBytes)
	return fmt.Sprintf("%08x", hasher.Sum32())
}
