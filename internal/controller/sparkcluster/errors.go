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

	"github.com/sparkkube/spark-cluster-operator/pkg/common"
)

// RoleGroupError is returned when a create or delete action against the cluster API
// fails. It keeps the offending role group so callers can log and alert without
// re-deriving it.
type RoleGroupError struct {
	Cluster string
	Role    common.Role
	Hash    string
	Op      string
	Err     error
}

// Error implements the error interface.
func (e *RoleGroupError) Error() string {
	return fmt.Sprintf("failed to %s for role group %s/%s of cluster %s: %v", e.Op, e.Role, e.Hash, e.Cluster, e.Err)
}

// Unwrap returns the underlying API error.
func (e *RoleGroupError) Unwrap() error {
	return e.Err
}

func newRoleGroupError(cluster string, role common.Role, hash string, op string, err error) *RoleGroupError {
	return &RoleGroupError{
		Cluster: cluster,
		Role:    role,
		Hash:    hash,
		Op:      op,
		Err:     err,
	}
}
