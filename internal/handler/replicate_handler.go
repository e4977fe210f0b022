// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package handler provides HTTP request handlers for the Registry Replicator API.
package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitops/registry-replicator/internal/models"
	apperrors "github.com/orbitops/registry-replicator/internal/pkg/errors"
	"github.com/orbitops/registry-replicator/internal/pkg/logger"
	"github.com/orbitops/registry-replicator/internal/pkg/validator"
	"github.com/orbitops/registry-replicator/internal/repository"
	"github.com/orbitops/registry-replicator/internal/service"
	"github.com/orbitops/registry-replicator/internal/types"
)

// ReplicateHandler handles HTTP requests related to replication tasks.
type ReplicateHandler struct {
	replicateService service.ReplicateService
	config           *types.Config
	logger           logger.Logger
}

// NewReplicateHandler creates a new ReplicateHandler instance.
func NewReplicateHandler(replicateService service.ReplicateService, cfg *types.Config, logger logger.Logger) *ReplicateHandler {
	return &ReplicateHandler{
		replicateService: replicateService,
		config:           cfg,
		logger:           logger,
	}
}

// handleError processes errors and sends appropriate HTTP responses.
func (h *ReplicateHandler) handleError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode, gin.H{"error": appErr.Message})
	} else {
		h.logger.Error("Unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// Replicate creates a new replication task.
// It validates the request, creates a task record, and starts the
// replication asynchronously.
//
// Request body (JSON):
//   - sourceRegistry (required): Source registry URL
//   - destRegistry (required): Destination registry URL
//   - images (required): Ordered list of images to replicate
//   - cloud (optional): "aws", "azure", or empty for no push authentication
//   - region (optional): AWS region, required when cloud is "aws"
//   - sourceUsername, sourcePassword (optional): Source registry credentials
//   - strictAuth, verbose (optional): Behavior flags
//
// Response (200 OK):
//
//	{"message": "Replication started", "id": "task-uuid"}
//
// Error responses: 400 (invalid input), 500 (server error)
func (h *ReplicateHandler) Replicate(c *gin.Context) {
	var req models.ReplicateRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind JSON request: %v", err)
		h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid request body"))
		return
	}

	if err := validator.ValidateSourceURL(req.SourceRegistry); err != nil {
		h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid source registry"))
		return
	}

	for _, img := range req.Images {
		if err := validator.ValidateImageName(img); err != nil {
			h.handleError(c, apperrors.WrapInvalidInput(err, fmt.Sprintf("Invalid image name %q", img)))
			return
		}
	}

	if err := validator.ValidateCloud(req.Cloud, regionOrDefault(req.Region, h.config)); err != nil {
		h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid cloud configuration"))
		return
	}

	if err := validator.ValidateCredentials(req.SourceUsername, req.SourcePassword); err != nil {
		h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid source credentials"))
		return
	}

	taskID, err := h.replicateService.CreateTask(&req)
	if err != nil {
		h.logger.Error("Failed to create replication task: %v", err)
		h.handleError(c, apperrors.WrapInternal(err, "Failed to create replication task"))
		return
	}

	// Execute replication asynchronously
	go func() {
		if err := h.replicateService.ExecuteReplication(taskID, &req); err != nil {
			h.logger.Error("[%s] Replication execution failed: %v", taskID, err)
		}
	}()

	h.logger.Info("Replication task created: %s (%s -> %s, %d images)", taskID, req.SourceRegistry, req.DestRegistry, len(req.Images))

	c.JSON(http.StatusOK, gin.H{
		"message": "Replication started",
		"id":      taskID,
	})
}

// GetStatus retrieves the status and details of a replication task by ID.
//
// Response (200 OK): Task object with all details (status, logs, timestamps, etc.)
// Error responses: 404 (task not found), 500 (server error)
func (h *ReplicateHandler) GetStatus(c *gin.Context) {
	id := c.Param("id")

	task, err := h.replicateService.GetTask(id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			h.handleError(c, apperrors.WrapTaskNotFound(err))
			return
		}
		h.logger.Error("Failed to get task %s: %v", id, err)
		h.handleError(c, apperrors.WrapInternal(err, "Failed to get task"))
		return
	}

	c.JSON(http.StatusOK, task)
}

// StreamLogs streams task logs to the client using Server-Sent Events (SSE).
// It sends historical logs first, then streams new logs in real-time until
// the task completes.
func (h *ReplicateHandler) StreamLogs(c *gin.Context) {
	id := c.Param("id")

	task, err := h.replicateService.GetTask(id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			h.handleError(c, apperrors.WrapTaskNotFound(err))
			return
		}
		h.logger.Error("Failed to get task %s for log streaming: %v", id, err)
		h.handleError(c, apperrors.WrapInternal(err, "Failed to get task"))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	// Send existing logs first
	existingLogs := task.GetLogLines()
	taskStatus := task.Status

	for _, line := range existingLogs {
		fmt.Fprintf(c.Writer, "data: %s\n\n", line)
		c.Writer.Flush()
	}

	if taskStatus == models.StatusCompleted || taskStatus == models.StatusFailed {
		return
	}

	logChan := task.AddLogListener()
	defer task.RemoveLogListener(logChan)

	clientGone := c.Request.Context().Done()
	for {
		select {
		case line, ok := <-logChan:
			if !ok {
				// Channel closed, task completed
				return
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", line)
			c.Writer.Flush()
		case <-clientGone:
			return
		}
	}
}

// GetEnvDefaults returns default registry configuration.
//
// Response (200 OK):
//
//	{"sourceRegistry": "https://registry.example.com", "destRegistry": "dest.example.com"}
func (h *ReplicateHandler) GetEnvDefaults(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sourceRegistry": h.config.Registry.DefaultSourceRegistry,
		"destRegistry":   h.config.Registry.DefaultDestRegistry,
	})
}

// ListTasks lists replication tasks with pagination, filtering, and sorting.
func (h *ReplicateHandler) ListTasks(c *gin.Context) {
	var req models.TaskListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid query parameters"))
		return
	}

	resp, err := h.replicateService.ListTasks(&req)
	if err != nil {
		h.logger.Error("Failed to list tasks: %v", err)
		h.handleError(c, apperrors.WrapInternal(err, "Failed to list tasks"))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Health performs a health check and returns service status.
func (h *ReplicateHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// regionOrDefault prefers the request's region over the configured default.
func regionOrDefault(region string, cfg *types.Config) string {
	if region != "" {
		return region
	}
	return cfg.Cloud.Region
}
