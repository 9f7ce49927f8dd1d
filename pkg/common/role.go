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

package common

import "fmt"

// Role is the kind of workload a cluster pod runs. The set is closed; adding a
// role is a schema change.
type Role string

const (
	RoleMaster        Role = "master"
	RoleWorker        Role = "worker"
	RoleHistoryServer Role = "history-server"
)

// Roles lists all roles in reconciliation priority order. The master must be
// reconciled before workers so new workers have a master to register with.
var Roles = []Role{RoleMaster, RoleWorker, RoleHistoryServer}

// ParseRole parses the role label value of a pod. It is the single place a
// role string is turned into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleMaster:
		return RoleMaster, nil
	case RoleWorker:
		return RoleWorker, nil
	case RoleHistoryServer:
		return RoleHistoryServer, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// String implements the fmt.Stringer interface.
func (r Role) String() string {
	return string(r)
}

// StartCommand returns the command launching this role inside the Spark
// distribution. SPARK_NO_DAEMONIZE keeps the process in the foreground.
func (r Role) StartCommand() string {
	switch r {
	case RoleMaster:
		return "sbin/start-master.sh"
	case RoleWorker:
		return "sbin/start-worker.sh"
	case RoleHistoryServer:
		return "sbin/start-history-server.sh"
	}
	return ""
}
