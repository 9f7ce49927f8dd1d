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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionString(t *testing.T) {
	restore := func(v, commit, tag, treeState string) {
		version, gitCommit, gitTag, gitTreeState = v, commit, tag, treeState
	}
	defer restore(version, gitCommit, gitTag, gitTreeState)

	restore("1.2.0", "0123456789abcdef", "v1.2.0", "clean")
	assert.Equal(t, "v1.2.0", versionString())

	restore("1.2.0", "0123456789abcdef", "v1.2.0", "dirty")
	assert.Equal(t, "1.2.0+0123456.dirty", versionString())

	restore("1.2.0", "0123456789abcdef", "", "clean")
	assert.Equal(t, "1.2.0+0123456", versionString())

	restore("0.0.0", "", "", "")
	assert.Equal(t, "0.0.0+unknown", versionString())
}
