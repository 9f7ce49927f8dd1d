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
	"encoding/json"
	"fmt"
)

// MasterState is the status snapshot served by one Spark master on its /json
// endpoint. Decoding is strict: every field below is required and a payload
// missing any of them is rejected as a whole. Unknown extra fields are ignored.
type MasterState struct {
	URL           string        `json:"url"`
	Workers       []WorkerState `json:"workers"`
	AliveWorkers  int           `json:"aliveworkers"`
	ActiveApps    []Application `json:"activeapps"`
	CompletedApps []Application `json:"completedapps"`
	Status        string        `json:"status"`
}

// WorkerState is the state of one worker as reported by the master. All fields
// are required.
type WorkerState struct {
	ID            string `json:"id"`
	Host          string `json:"host"`
	Port          int32  `json:"port"`
	WebUIAddress  string `json:"webuiaddress"`
	Cores         int32  `json:"cores"`
	Memory        int64  `json:"memory"`
	MemoryUsed    int64  `json:"memoryused"`
	MemoryFree    int64  `json:"memoryfree"`
	State         string `json:"state"`
	LastHeartbeat int64  `json:"lastheartbeat"`
}

// Application is one unit of work submitted to the cluster. All fields are
// required.
type Application struct {
	ID             string           `json:"id"`
	StartTime      int64            `json:"starttime"`
	Name           string           `json:"name"`
	Cores          int32            `json:"cores"`
	MemoryPerSlave int64            `json:"memoryperslave"`
	SubmitDate     string           `json:"submitdate"`
	State          ApplicationState `json:"state"`
	Duration       int64            `json:"duration"`
}

// ApplicationState is the lifecycle state of an application. The set is closed;
// a payload carrying any other value fails decoding.
type ApplicationState string

// All possible application states.
const (
	ApplicationStateFailed   ApplicationState = "FAILED"
	ApplicationStateFinished ApplicationState = "FINISHED"
	ApplicationStateRunning  ApplicationState = "RUNNING"
	ApplicationStateWaiting  ApplicationState = "WAITING"
)

// IsValid returns whether the state is one of the known variants.
func (s ApplicationState) IsValid() bool {
	switch s {
	case ApplicationStateFailed, ApplicationStateFinished, ApplicationStateRunning, ApplicationStateWaiting:
		return true
	}
	return false
}

// requiredField pairs a wire field name with whether the decoder found it. The
// encoding/json decoder leaves absent fields nil on a pointer shadow struct, which
// is how absence is told apart from a present zero value.
type requiredField struct {
	name    string
	missing bool
}

func firstMissing(fields []requiredField) error {
	for _, field := range fields {
		if field.missing {
			return fmt.Errorf("missing the %s field", field.name)
		}
	}
	return nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (m *MasterState) UnmarshalJSON(data []byte) error {
	var raw struct {
		URL           *string        `json:"url"`
		Workers       *[]WorkerState `json:"workers"`
		AliveWorkers  *int           `json:"aliveworkers"`
		ActiveApps    *[]Application `json:"activeapps"`
		CompletedApps *[]Application `json:"completedapps"`
		Status        *string        `json:"status"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := firstMissing([]requiredField{
		{"url", raw.URL == nil},
		{"workers", raw.Workers == nil},
		{"aliveworkers", raw.AliveWorkers == nil},
		{"activeapps", raw.ActiveApps == nil},
		{"completedapps", raw.CompletedApps == nil},
		{"status", raw.Status == nil},
	}); err != nil {
		return fmt.Errorf("master state is %w", err)
	}
	*m = MasterState{
		URL:           *raw.URL,
		Workers:       *raw.Workers,
		AliveWorkers:  *raw.AliveWorkers,
		ActiveApps:    *raw.ActiveApps,
		CompletedApps: *raw.CompletedApps,
		Status:        *raw.Status,
	}
	return nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (w *WorkerState) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID            *string `json:"id"`
		Host          *string `json:"host"`
		Port          *int32  `json:"port"`
		WebUIAddress  *string `json:"webuiaddress"`
		Cores         *int32  `json:"cores"`
		Memory        *int64  `json:"memory"`
		MemoryUsed    *int64  `json:"memoryused"`
		MemoryFree    *int64  `json:"memoryfree"`
		State         *string `json:"state"`
		LastHeartbeat *int64  `json:"lastheartbeat"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := firstMissing([]requiredField{
		{"id", raw.ID == nil},
		{"host", raw.Host == nil},
		{"port", raw.Port == nil},
		{"webuiaddress", raw.WebUIAddress == nil},
		{"cores", raw.Cores == nil},
		{"memory", raw.Memory == nil},
		{"memoryused", raw.MemoryUsed == nil},
		{"memoryfree", raw.MemoryFree == nil},
		{"state", raw.State == nil},
		{"lastheartbeat", raw.LastHeartbeat == nil},
	}); err != nil {
		return fmt.Errorf("worker record is %w", err)
	}
	*w = WorkerState{
		ID:            *raw.ID,
		Host:          *raw.Host,
		Port:          *raw.Port,
		WebUIAddress:  *raw.WebUIAddress,
		Cores:         *raw.Cores,
		Memory:        *raw.Memory,
		MemoryUsed:    *raw.MemoryUsed,
		MemoryFree:    *raw.MemoryFree,
		State:         *raw.State,
		LastHeartbeat: *raw.LastHeartbeat,
	}
	return nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (a *Application) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID             *string           `json:"id"`
		StartTime      *int64            `json:"starttime"`
		Name           *string           `json:"name"`
		Cores          *int32            `json:"cores"`
		MemoryPerSlave *int64            `json:"memoryperslave"`
		SubmitDate     *string           `json:"submitdate"`
		State          *ApplicationState `json:"state"`
		Duration       *int64            `json:"duration"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := firstMissing([]requiredField{
		{"id", raw.ID == nil},
		{"starttime", raw.StartTime == nil},
		{"name", raw.Name == nil},
		{"cores", raw.Cores == nil},
		{"memoryperslave", raw.MemoryPerSlave == nil},
		{"submitdate", raw.SubmitDate == nil},
		{"state", raw.State == nil},
		{"duration", raw.Duration == nil},
	}); err != nil {
		return fmt.Errorf("application record is %w", err)
	}
	if !raw.State.IsValid() {
		return fmt.Errorf("application %s has an unknown state %q", *raw.ID, *raw.State)
	}
	*a = Application{
		ID:             *raw.ID,
		StartTime:      *raw.StartTime,
		Name:           *raw.Name,
		Cores:          *raw.Cores,
		MemoryPerSlave: *raw.MemoryPerSlave,
		SubmitDate:     *raw.SubmitDate,
		State:          *raw.State,
		Duration:       *raw.Duration,
	}
	return nil
}
