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

package sparkclusteroperator

import (
	"fmt"
	"runtime"
)

// Build metadata, injected through -ldflags by the release build. A plain
// `go build` leaves the zero values below in place.
var (
	version      = "0.0.0"
	gitCommit    = ""
	gitTag       = ""
	gitTreeState = ""
	buildDate    = "1970-01-01T00:00:00Z"
)

// versionString reports the tag for a clean tagged build and otherwise a
// pseudo-version carrying whatever commit metadata is available.
func versionString() string {
	if gitTag != "" && gitTreeState == "clean" {
		return gitTag
	}
	v := version
	if len(gitCommit) < 7 {
		return v + "+unknown"
	}
	v += "+" + gitCommit[:7]
	if gitTreeState != "clean" {
		v += ".dirty"
	}
	return v
}

// PrintVersion writes the operator build information to stdout. With short set,
// only the version line is printed.
func PrintVersion(short bool) {
	fmt.Printf("Spark Cluster Operator Version: %s\n", versionString())
	if short {
		return
	}
	fmt.Printf("Build Date: %s\n", buildDate)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Git Tree State: %s\n", gitTreeState)
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
