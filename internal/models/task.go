// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package models defines data structures for the Registry Replicator application.
package models

import (
	"sync"
	"time"

	"github.com/orbitops/registry-replicator/internal/registry"
	"github.com/orbitops/registry-replicator/internal/types"
)

// TaskStatus represents the current state of a replication task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"   // Task created, not yet started
	StatusRunning   TaskStatus = "running"   // Task is currently executing
	StatusCompleted TaskStatus = "completed" // Task completed successfully
	StatusFailed    TaskStatus = "failed"    // Task failed with error
)

// ReplicationTask represents one replication job submitted over the API.
// It tracks metadata, status, logs, and provides real-time log streaming.
type ReplicationTask struct {
	ID             string               `json:"id"`                  // Unique task identifier (UUID)
	SourceRegistry string               `json:"sourceRegistry"`      // Source registry URL
	DestRegistry   string               `json:"destRegistry"`        // Destination registry URL
	Images         []string             `json:"images"`              // Images to replicate, in order
	Cloud          types.CloudKind      `json:"cloud"`               // Destination cloud kind
	Status         TaskStatus           `json:"status"`              // Current task status
	Message        string               `json:"message"`             // Human-readable status message
	Tagged         []registry.TargetRef `json:"tagged"`              // Destination references tagged so far
	Output         string               `json:"output"`              // Complete log output (set when task completes)
	ErrorOutput    string               `json:"errorOutput"`         // Error message (if task failed)
	StartTime      time.Time            `json:"startTime"`           // Task start timestamp
	EndTime        *time.Time           `json:"endTime,omitempty"`   // Task end timestamp (nil if not completed)
	LogLines       []string             `json:"-"`                   // In-memory log lines (not serialized)
	LogListeners   []chan string        `json:"-"`                   // Active log stream subscribers (SSE)
	logMu          sync.Mutex
}

// NewReplicationTask creates a new replication task with initial pending status.
func NewReplicationTask(id, sourceRegistry, destRegistry string, images []string, cloud types.CloudKind) *ReplicationTask {
	return &ReplicationTask{
		ID:             id,
		SourceRegistry: sourceRegistry,
		DestRegistry:   destRegistry,
		Images:         images,
		Cloud:          cloud,
		Status:         StatusPending,
		Message:        "Task created",
		StartTime:      time.Now(),
		LogLines:       []string{},
		LogListeners:   []chan string{},
	}
}

// AddLog appends a log line to the task and broadcasts it to all active listeners.
// Thread-safe for concurrent access.
func (t *ReplicationTask) AddLog(line string) {
	t.logMu.Lock()
	defer t.logMu.Unlock()

	t.LogLines = append(t.LogLines, line)
	for _, ch := range t.LogListeners {
		select {
		case ch <- line:
		default:
			// Channel is full or closed, skip this listener
		}
	}
}

// AddLogListener creates a new log listener channel for SSE streaming.
func (t *ReplicationTask) AddLogListener() chan string {
	t.logMu.Lock()
	defer t.logMu.Unlock()

	ch := make(chan string, 100)
	t.LogListeners = append(t.LogListeners, ch)
	return ch
}

// RemoveLogListener removes and closes a log listener channel.
func (t *ReplicationTask) RemoveLogListener(ch chan string) {
	t.logMu.Lock()
	defer t.logMu.Unlock()

	for i, listener := range t.LogListeners {
		if listener == ch {
			t.LogListeners = append(t.LogListeners[:i], t.LogListeners[i+1:]...)
			close(ch)
			break
		}
	}
}

// CloseAllLogListeners closes all active log listener channels.
// Called when the task completes to notify all SSE clients.
func (t *ReplicationTask) CloseAllLogListeners() {
	t.logMu.Lock()
	defer t.logMu.Unlock()

	for _, ch := range t.LogListeners {
		close(ch)
	}
	t.LogListeners = []chan string{}
}

// GetLogLines returns a copy of all log lines.
func (t *ReplicationTask) GetLogLines() []string {
	t.logMu.Lock()
	defer t.logMu.Unlock()

	logs := make([]string, len(t.LogLines))
	copy(logs, t.LogLines)
	return logs
}

// ReplicateRequest represents the request body for creating a replication task.
type ReplicateRequest struct {
	SourceRegistry string          `json:"sourceRegistry" binding:"required"` // Source registry URL (required)
	DestRegistry   string          `json:"destRegistry" binding:"required"`   // Destination registry URL (required)
	Images         []string        `json:"images" binding:"required"`         // Images to replicate (required)
	Cloud          types.CloudKind `json:"cloud"`                             // Cloud kind: "aws", "azure", or empty
	Region         string          `json:"region"`                            // AWS region (required for cloud "aws")
	SourceUsername string          `json:"sourceUsername"`                    // Source registry username (optional)
	SourcePassword string          `json:"sourcePassword"`                    // Source registry password (optional)
	StrictAuth     *bool           `json:"strictAuth"`                        // Fail on incomplete push credentials (optional)
	Verbose        *bool           `json:"verbose"`                           // Log progress line by line (optional)
}

// InspectRequest represents the request body for inspecting an image.
type InspectRequest struct {
	Image    string `json:"image" binding:"required"` // Image address (required)
	Username string `json:"username"`                 // Registry username (optional)
	Password string `json:"password"`                 // Registry password (optional)
}

// InspectResponse represents the response for image inspection.
type InspectResponse struct {
	Platforms []string `json:"platforms"` // List of available platforms (os/arch[/variant])
}

// TaskListRequest represents query parameters for listing tasks.
type TaskListRequest struct {
	Page      int        `form:"page,default=1"`           // Page number (default: 1)
	PageSize  int        `form:"pageSize,default=20"`      // Items per page (default: 20, max: 100)
	Status    TaskStatus `form:"status"`                   // Filter by status (optional)
	SortBy    string     `form:"sortBy,default=startTime"` // Sort field (default: startTime)
	SortOrder string     `form:"sortOrder,default=desc"`   // Sort order: asc/desc (default: desc)
}

// TaskSummary represents a summarized view of a task (without full logs).
type TaskSummary struct {
	ID             string          `json:"id"`
	SourceRegistry string          `json:"sourceRegistry"`
	DestRegistry   string          `json:"destRegistry"`
	Images         []string        `json:"images"`
	Cloud          types.CloudKind `json:"cloud"`
	Status         TaskStatus      `json:"status"`
	Message        string          `json:"message"`
	StartTime      time.Time       `json:"startTime"`
	EndTime        *time.Time      `json:"endTime,omitempty"`
}

// TaskListResponse represents the response for task list queries.
type TaskListResponse struct {
	Total    int            `json:"total"`    // Total number of tasks matching filter
	Page     int            `json:"page"`     // Current page number
	PageSize int            `json:"pageSize"` // Items per page
	Tasks    []*TaskSummary `json:"tasks"`    // Task summaries for current page
}
