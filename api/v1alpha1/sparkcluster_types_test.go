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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/utils/ptr"

	"github.com/sparkkube/spark-cluster-operator/pkg/common"
)

func newTestSpec() *SparkClusterSpec {
	return &SparkClusterSpec{
		SparkVersion: "3.5.1",
		Master: RoleSpec{
			RoleGroups: map[string]RoleGroupSpec{
				"default": {Instances: 1},
			},
		},
		Worker: RoleSpec{
			RoleGroups: map[string]RoleGroupSpec{
				"default": {
					Instances: 3,
					Config:    map[string]string{"SPARK_WORKER_CORES": "4"},
				},
			},
		},
	}
}

func TestGetImage_Default(t *testing.T) {
	spec := newTestSpec()
	assert.Equal(t, "apache/spark:3.5.1", spec.GetImage())
}

func TestGetImage_Explicit(t *testing.T) {
	spec := newTestSpec()
	spec.Image = ptr.To("registry.example.com/spark:custom")
	assert.Equal(t, "registry.example.com/spark:custom", spec.GetImage())
}

func TestGetMasterWebUIPort(t *testing.T) {
	spec := newTestSpec()
	assert.Equal(t, int32(8080), spec.GetMasterWebUIPort())

	spec.ClusterConfig.MasterWebUIPort = ptr.To(int32(9090))
	assert.Equal(t, int32(9090), spec.GetMasterWebUIPort())
}

func TestGroupConfigHash_Deterministic(t *testing.T) {
	spec := newTestSpec()
	group := spec.Worker.RoleGroups["default"]

	hash1 := spec.GroupConfigHash(common.RoleWorker, group)
	hash2 := spec.GroupConfigHash(common.RoleWorker, group)
	require.Len(t, hash1, 8)
	assert.Equal(t, hash1, hash2)
}

func TestGroupConfigHash_InstancesDoNotRollPods(t *testing.T) {
	spec := newTestSpec()
	group := spec.Worker.RoleGroups["default"]
	hash1 := spec.GroupConfigHash(common.RoleWorker, group)

	group.Instances = 10
	hash2 := spec.GroupConfigHash(common.RoleWorker, group)

	assert.Equal(t, hash1, hash2, "scaling a group must not change its hash")
}

func TestGroupConfigHash_ConfigChange(t *testing.T) {
	spec := newTestSpec()
	group := spec.Worker.RoleGroups["default"]
	hash1 := spec.GroupConfigHash(common.RoleWorker, group)

	group.Config = map[string]string{"SPARK_WORKER_CORES": "8"}
	hash2 := spec.GroupConfigHash(common.RoleWorker, group)

	assert.NotEqual(t, hash1, hash2)
}

func TestGroupConfigHash_EnvChange(t *testing.T) {
	spec := newTestSpec()
	group := spec.Worker.RoleGroups["default"]
	hash1 := spec.GroupConfigHash(common.RoleWorker, group)

	group.Env = []corev1.EnvVar{{Name: "SPARK_LOCAL_DIRS", Value: "/scratch"}}
	hash2 := spec.GroupConfigHash(common.RoleWorker, group)

	assert.NotEqual(t, hash1, hash2)
}

func TestGroupConfigHash_ImageChange(t *testing.T) {
	spec := newTestSpec()
	group := spec.Worker.RoleGroups["default"]
	hash1 := spec.GroupConfigHash(common.RoleWorker, group)

	spec.SparkVersion = "3.5.2"
	hash2 := spec.GroupConfigHash(common.RoleWorker, group)

	assert.NotEqual(t, hash1, hash2, "a version bump must roll the pods")
}

func TestGroupConfigHash_RoleIsPartOfIdentity(t *testing.T) {
	spec := newTestSpec()
	group := RoleGroupSpec{Instances: 1}

	masterHash := spec.GroupConfigHash(common.RoleMaster, group)
	workerHash := spec.GroupConfigHash(common.RoleWorker, group)

	assert.NotEqual(t, masterHash, workerHash)
}

func TestGetDesiredTopology(t *testing.T) {
	spec := newTestSpec()
	topology := spec.GetDesiredTopology()

	require.Contains(t, topology, common.RoleMaster)
	require.Contains(t, topology, common.RoleWorker)
	assert.NotContains(t, topology, common.RoleHistoryServer, "unset history server must not appear")

	masterHash := spec.GroupConfigHash(common.RoleMaster, spec.Master.RoleGroups["default"])
	assert.Equal(t, int32(1), topology[common.RoleMaster][masterHash])

	workerHash := spec.GroupConfigHash(common.RoleWorker, spec.Worker.RoleGroups["default"])
	assert.Equal(t, int32(3), topology[common.RoleWorker][workerHash])
}

func TestGetDesiredTopology_CollidingGroupsAreSummed(t *testing.T) {
	spec := newTestSpec()
	spec.Worker.RoleGroups = map[string]RoleGroupSpec{
		"pool-a": {Instances: 2, Config: map[string]string{"SPARK_WORKER_CORES": "4"}},
		"pool-b": {Instances: 3, Config: map[string]string{"SPARK_WORKER_CORES": "4"}},
	}

	topology := spec.GetDesiredTopology()
	require.Len(t, topology[common.RoleWorker], 1, "identical configurations must collapse into one bucket")
	for _, count := range topology[common.RoleWorker] {
		assert.Equal(t, int32(5), count)
	}
}

func TestFindRoleGroupByHash(t *testing.T) {
	spec := newTestSpec()
	group := spec.Worker.RoleGroups["default"]
	hash := spec.GroupConfigHash(common.RoleWorker, group)

	found := spec.FindRoleGroupByHash(common.RoleWorker, hash)
	require.NotNil(t, found)
	assert.Equal(t, group.Config, found.Config)

	assert.Nil(t, spec.FindRoleGroupByHash(common.RoleWorker, "00000000"))
	assert.Nil(t, spec.FindRoleGroupByHash(common.RoleHistoryServer, hash), "unset role has no groups")
}
