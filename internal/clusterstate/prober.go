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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
)

const (
	// DefaultProbeTimeout bounds each master status request.
	DefaultProbeTimeout = 10 * time.Second
)

// Prober queries Spark master endpoints for their status snapshots. A clustered
// master may expose several endpoints (one leader plus standbys); the prober
// tolerates any subset being unreachable and aggregates whatever responded.
type Prober struct {
	httpClient *http.Client
	logger     logr.Logger
}

// NewProber creates a new Prober. A nil httpClient falls back to a client with
// the default probe timeout.
func NewProber(httpClient *http.Client, logger logr.Logger) *Prober {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultProbeTimeout}
	}
	return &Prober{
		httpClient: httpClient,
		logger:     logger,
	}
}

// GetRunningApplications collects the applications in the RUNNING state across all
// given master endpoints. Endpoints that cannot be reached, read, or parsed are
// logged and skipped; the probe itself never fails because of them. Callers use the
// result to decide whether disrupting the cluster is safe right now.
func (p *Prober) GetRunningApplications(ctx context.Context, endpoints []string) []Application {
	var running []Application
	for _, state := range p.requestStates(ctx, endpoints) {
		for _, app := range state.ActiveApps {
			if app.State == ApplicationStateRunning {
				running = append(running, app)
			}
		}
	}
	return running
}

// requestStates fetches and parses the status snapshot of every endpoint in list
// order. Per-endpoint failures are independent; each is logged and the endpoint
// skipped.
func (p *Prober) requestStates(ctx context.Context, endpoints []string) []MasterState {
	states := make([]MasterState, 0, len(endpoints))
	for _, endpoint := range endpoints {
		state, err := p.requestState(ctx, endpoint)
		if err != nil {
			p.logger.Error(err, "Skipping unreachable master endpoint", "endpoint", endpoint)
			continue
		}
		states = append(states, *state)
	}
	return states
}

func (p *Prober) requestState(ctx context.Context, endpoint string) (*MasterState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build master state request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request master state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("master state request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read master state response: %w", err)
	}

	// Decoding is strict; a payload missing any required field fails here and
	// the endpoint is skipped by the caller.
	state := &MasterState{}
	if err := json.Unmarshal(body, state); err != nil {
		return nil, fmt.Errorf("failed to parse master state: %w", err)
	}

	return state, nil
}

// MasterEndpointURLs builds the /json status endpoint URLs of all running master
// pods that have been assigned an IP, sorted by pod name for determinism.
func MasterEndpointURLs(pods []corev1.Pod, port int32) []string {
	sorted := make([]corev1.Pod, len(pods))
	copy(sorted, pods)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	var endpoints []string
	for _, pod := range sorted {
		if pod.Status.Phase != corev1.PodRunning || pod.Status.PodIP == "" {
			continue
		}
		endpoints = append(endpoints, fmt.Sprintf("http://%s:%d/json", pod.Status.PodIP, port))
	}
	return endpoints
}
