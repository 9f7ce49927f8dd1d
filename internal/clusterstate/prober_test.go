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

package clusterstate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	ctrl "sigs.k8s.io/controller-runtime"
)

const testMasterState = `{
	"url": "spark://10.0.0.1:7077",
	"workers": [
		{
			"id": "worker-20250101000000-10.0.0.2-35001",
			"host": "10.0.0.2",
			"port": 35001,
			"webuiaddress": "http://10.0.0.2:8081",
			"cores": 4,
			"memory": 14336,
			"memoryused": 1024,
			"memoryfree": 13312,
			"state": "ALIVE",
			"lastheartbeat": 1735689600000
		}
	],
	"aliveworkers": 1,
	"activeapps": [
		{
			"id": "app-20250101000001-0000",
			"starttime": 1735689600000,
			"name": "etl-job",
			"cores": 2,
			"memoryperslave": 1024,
			"submitdate": "Wed Jan 01 00:00:00 UTC 2025",
			"state": "RUNNING",
			"duration": 60000
		},
		{
			"id": "app-20250101000002-0001",
			"starttime": 1735689660000,
			"name": "queued-job",
			"cores": 2,
			"memoryperslave": 1024,
			"submitdate": "Wed Jan 01 00:01:00 UTC 2025",
			"state": "WAITING",
			"duration": 0
		}
	],
	"completedapps": [
		{
			"id": "app-20241231000000-0042",
			"starttime": 1735603200000,
			"name": "finished-job",
			"cores": 2,
			"memoryperslave": 1024,
			"submitdate": "Tue Dec 31 00:00:00 UTC 2024",
			"state": "FINISHED",
			"duration": 3600000
		}
	],
	"status": "ALIVE"
}`

// runningAppState renders a complete master state payload with a single RUNNING
// application.
func runningAppState(url, status, appID string) string {
	return fmt.Sprintf(`{
		"url": %q,
		"workers": [],
		"aliveworkers": 0,
		"activeapps": [{
			"id": %q,
			"starttime": 1735689600000,
			"name": "etl-job",
			"cores": 2,
			"memoryperslave": 1024,
			"submitdate": "Wed Jan 01 00:00:00 UTC 2025",
			"state": "RUNNING",
			"duration": 60000
		}],
		"completedapps": [],
		"status": %q
	}`, url, appID, status)
}

func newStateServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestProber() *Prober {
	return NewProber(nil, ctrl.Log.WithName("prober-test"))
}

func TestGetRunningApplications(t *testing.T) {
	server := newStateServer(t, testMasterState)
	prober := newTestProber()

	running := prober.GetRunningApplications(context.TODO(), []string{server.URL})
	require.Len(t, running, 1)
	assert.Equal(t, "app-20250101000001-0000", running[0].ID)
	assert.Equal(t, ApplicationStateRunning, running[0].State)
}

func TestGetRunningApplications_SkipsUnreachableEndpoint(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	server := newStateServer(t, testMasterState)
	prober := newTestProber()

	running := prober.GetRunningApplications(context.TODO(), []string{dead.URL, server.URL})
	assert.Len(t, running, 1, "one unreachable endpoint must not poison the probe")
}

func TestGetRunningApplications_SkipsInvalidPayload(t *testing.T) {
	server := newStateServer(t, `{"url": "spark://10.0.0.1:7077", not json`)
	prober := newTestProber()

	running := prober.GetRunningApplications(context.TODO(), []string{server.URL})
	assert.Empty(t, running)
}

func TestGetRunningApplications_NoEndpoints(t *testing.T) {
	prober := newTestProber()
	assert.Empty(t, prober.GetRunningApplications(context.TODO(), nil))
}

func TestGetRunningApplications_AggregatesAcrossMixedEndpoints(t *testing.T) {
	valid := newStateServer(t, testMasterState)
	invalid := newStateServer(t, `not json at all`)
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(time.Second)
		_, _ = w.Write([]byte(testMasterState))
	}))
	t.Cleanup(slow.Close)

	prober := NewProber(&http.Client{Timeout: 50 * time.Millisecond}, ctrl.Log.WithName("prober-test"))

	running := prober.GetRunningApplications(context.TODO(), []string{valid.URL, slow.URL, invalid.URL})
	require.Len(t, running, 1, "only the healthy endpoint contributes")
	assert.Equal(t, "app-20250101000001-0000", running[0].ID)
}

func TestGetRunningApplications_PreservesEndpointOrder(t *testing.T) {
	first := newStateServer(t, runningAppState("spark://10.0.0.1:7077", "ALIVE", "app-first"))
	second := newStateServer(t, runningAppState("spark://10.0.0.2:7077", "STANDBY", "app-second"))

	running := newTestProber().GetRunningApplications(context.TODO(), []string{first.URL, second.URL})
	require.Len(t, running, 2)
	assert.Equal(t, "app-first", running[0].ID)
	assert.Equal(t, "app-second", running[1].ID)
}

func TestGetRunningApplications_CancelledContext(t *testing.T) {
	server := newStateServer(t, testMasterState)
	prober := newTestProber()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, prober.GetRunningApplications(ctx, []string{server.URL}))
}

func TestRequestState_RejectsNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	_, err := newTestProber().requestState(context.TODO(), server.URL)
	require.Error(t, err)
	assert.ErrorContains(t, err, "status 503")
}

func TestRequestState_RejectsMissingStatusField(t *testing.T) {
	server := newStateServer(t, `{"url": "spark://10.0.0.1:7077", "workers": [], "aliveworkers": 0, "activeapps": [], "completedapps": []}`)

	_, err := newTestProber().requestState(context.TODO(), server.URL)
	require.Error(t, err)
	assert.ErrorContains(t, err, "missing the status field")
}

func TestRequestState_RejectsUnknownApplicationState(t *testing.T) {
	server := newStateServer(t, `{
		"url": "spark://10.0.0.1:7077",
		"workers": [],
		"aliveworkers": 0,
		"activeapps": [{
			"id": "app-1",
			"starttime": 1735689600000,
			"name": "etl-job",
			"cores": 2,
			"memoryperslave": 1024,
			"submitdate": "Wed Jan 01 00:00:00 UTC 2025",
			"state": "EXPLODED",
			"duration": 60000
		}],
		"completedapps": [],
		"status": "ALIVE"
	}`)

	_, err := newTestProber().requestState(context.TODO(), server.URL)
	require.Error(t, err)
	assert.ErrorContains(t, err, "unknown state")
}

func TestRequestState_RejectsIncompleteWorkerRecord(t *testing.T) {
	// A worker record with only id, host and state present must reject the
	// whole payload even though those three decode cleanly.
	server := newStateServer(t, `{
		"url": "spark://10.0.0.1:7077",
		"workers": [{"id": "worker-1", "host": "10.0.0.2", "state": "ALIVE"}],
		"aliveworkers": 1,
		"activeapps": [],
		"completedapps": [],
		"status": "ALIVE"
	}`)

	_, err := newTestProber().requestState(context.TODO(), server.URL)
	require.Error(t, err)
	assert.ErrorContains(t, err, "worker record is missing the port field")
}

func TestRequestState_RejectsIncompleteApplicationRecord(t *testing.T) {
	server := newStateServer(t, `{
		"url": "spark://10.0.0.1:7077",
		"workers": [],
		"aliveworkers": 0,
		"activeapps": [{"id": "app-1", "state": "RUNNING"}],
		"completedapps": [],
		"status": "ALIVE"
	}`)

	_, err := newTestProber().requestState(context.TODO(), server.URL)
	require.Error(t, err)
	assert.ErrorContains(t, err, "application record is missing the starttime field")
}

func TestGetRunningApplications_SkipsIncompletePayload(t *testing.T) {
	incomplete := newStateServer(t, `{
		"url": "spark://10.0.0.1:7077",
		"workers": [{"id": "worker-1", "host": "10.0.0.2", "state": "ALIVE"}],
		"aliveworkers": 1,
		"activeapps": [{"id": "app-1", "state": "RUNNING"}],
		"completedapps": [],
		"status": "ALIVE"
	}`)
	complete := newStateServer(t, testMasterState)

	running := newTestProber().GetRunningApplications(context.TODO(), []string{incomplete.URL, complete.URL})
	require.Len(t, running, 1, "a RUNNING app in a rejected payload must not count")
	assert.Equal(t, "app-20250101000001-0000", running[0].ID)
}

func TestMasterEndpointURLs(t *testing.T) {
	pods := []corev1.Pod{
		{
			ObjectMeta: metav1.ObjectMeta{Name: "spark-master-b"},
			Status:     corev1.PodStatus{Phase: corev1.PodRunning, PodIP: "10.0.0.2"},
		},
		{
			ObjectMeta: metav1.ObjectMeta{Name: "spark-master-a"},
			Status:     corev1.PodStatus{Phase: corev1.PodRunning, PodIP: "10.0.0.1"},
		},
		{
			ObjectMeta: metav1.ObjectMeta{Name: "spark-master-pending"},
			Status:     corev1.PodStatus{Phase: corev1.PodPending},
		},
		{
			ObjectMeta: metav1.ObjectMeta{Name: "spark-master-no-ip"},
			Status:     corev1.PodStatus{Phase: corev1.PodRunning},
		},
	}

	endpoints := MasterEndpointURLs(pods, 8080)
	assert.Equal(t, []string{
		"http://10.0.0.1:8080/json",
		"http://10.0.0.2:8080/json",
	}, endpoints)
}
