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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkkube/spark-cluster-operator/pkg/common"
)

func TestGeneratePodName(t *testing.T) {
	cluster := newTestCluster()

	name := GeneratePodName(cluster, common.RoleWorker, "1a2b3c4d")
	require.True(t, strings.HasPrefix(name, "test-cluster-worker-1a2b3c4d-"))

	suffix := strings.TrimPrefix(name, "test-cluster-worker-1a2b3c4d-")
	assert.Len(t, suffix, 8, "suffix is the first field of a UUID")
	assert.NotContains(t, suffix, "-")
}

func TestGeneratePodName_Unique(t *testing.T) {
	cluster := newTestCluster()

	name1 := GeneratePodName(cluster, common.RoleWorker, "1a2b3c4d")
	name2 := GeneratePodName(cluster, common.RoleWorker, "1a2b3c4d")
	assert.NotEqual(t, name1, name2)
}

func TestGetConfigMapNames(t *testing.T) {
	cluster := newTestCluster()

	assert.Equal(t, "test-cluster-master-1a2b3c4d-config", GetConfigConfigMapName(cluster, common.RoleMaster, "1a2b3c4d"))
	assert.Equal(t, "test-cluster-master-1a2b3c4d-data", GetDataConfigMapName(cluster, common.RoleMaster, "1a2b3c4d"))
}

func TestGetGroupLabels(t *testing.T) {
	cluster := newTestCluster()

	labels := GetGroupLabels(cluster, common.RoleWorker, "1a2b3c4d")
	assert.Equal(t, map[string]string{
		common.LabelClusterName:       "test-cluster",
		common.LabelCreatedByOperator: "true",
		common.LabelRole:              "worker",
		common.LabelConfigHash:        "1a2b3c4d",
	}, labels)
}
