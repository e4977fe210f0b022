// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package service provides business logic for image replication operations.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orbitops/registry-replicator/internal/cloud"
	"github.com/orbitops/registry-replicator/internal/models"
	"github.com/orbitops/registry-replicator/internal/pkg/logger"
	"github.com/orbitops/registry-replicator/internal/registry"
	"github.com/orbitops/registry-replicator/internal/replicator"
	"github.com/orbitops/registry-replicator/internal/repository"
	"github.com/orbitops/registry-replicator/internal/types"
)

// ReplicateService defines the interface for image replication operations.
type ReplicateService interface {
	CreateTask(req *models.ReplicateRequest) (string, error)
	GetTask(id string) (*models.ReplicationTask, error)
	ExecuteReplication(taskID string, req *models.ReplicateRequest) error
	ListTasks(req *models.TaskListRequest) (*models.TaskListResponse, error)
}

// clientFactory builds a registry client. Tests substitute a fake.
type clientFactory func(log logger.Logger, opts ...registry.Option) (registry.Client, error)

// providerFactory builds a cloud credential provider. Tests substitute a fake.
type providerFactory func(cfg *types.CloudConfig, log logger.Logger) (cloud.Provider, error)

// replicateService implements the ReplicateService interface.
type replicateService struct {
	repo        repository.TaskRepository
	logger      logger.Logger
	cfg         *types.Config
	newClient   clientFactory
	newProvider providerFactory
}

// NewReplicateService creates a new ReplicateService instance.
func NewReplicateService(repo repository.TaskRepository, logger logger.Logger, cfg *types.Config) ReplicateService {
	return &replicateService{
		repo:        repo,
		logger:      logger,
		cfg:         cfg,
		newClient:   registry.NewDockerClient,
		newProvider: cloud.ForKind,
	}
}

// CreateTask creates a new replication task record in the repository.
func (s *replicateService) CreateTask(req *models.ReplicateRequest) (string, error) {
	taskID := uuid.New().String()

	task := models.NewReplicationTask(taskID, req.SourceRegistry, req.DestRegistry, req.Images, req.Cloud)

	if err := s.repo.Create(task); err != nil {
		return "", fmt.Errorf("failed to create task: %w", err)
	}

	return taskID, nil
}

// GetTask retrieves a task by ID from the repository.
func (s *replicateService) GetTask(id string) (*models.ReplicationTask, error) {
	return s.repo.Get(id)
}

// ExecuteReplication runs the replication job for a task: destination
// credentials are resolved once, then every image is pulled, retagged, and
// pushed in order. It updates task status and captures progress in the task
// log. This method runs asynchronously and should be called in a goroutine.
func (s *replicateService) ExecuteReplication(taskID string, req *models.ReplicateRequest) error {
	task, err := s.repo.Get(taskID)
	if err != nil {
		return fmt.Errorf("failed to get task: %w", err)
	}

	task.Status = models.StatusRunning
	task.Message = "Replicating images..."
	if err := s.repo.Update(task); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	task.AddLog(fmt.Sprintf("Task started at %s", time.Now().Format(time.RFC3339)))
	s.logger.Info("[%s] Starting replication: %s -> %s (%d images)", taskID, req.SourceRegistry, req.DestRegistry, len(req.Images))

	job, err := replicator.NewJob(req.SourceRegistry, req.DestRegistry, req.Images, req.Cloud)
	if err != nil {
		return s.handleTaskError(task, "Invalid replication configuration", err)
	}
	if req.SourceUsername != "" && req.SourcePassword != "" {
		job.SourceCreds = &types.RegistryCredentials{
			Username: req.SourceUsername,
			Password: req.SourcePassword,
			Registry: job.SourceRegistry,
		}
		task.AddLog("Using source credentials")
	}
	job.StrictAuth = s.cfg.Job.StrictAuth
	if req.StrictAuth != nil {
		job.StrictAuth = *req.StrictAuth
	}

	cloudCfg := s.cfg.Cloud
	cloudCfg.Kind = req.Cloud
	if req.Region != "" {
		cloudCfg.Region = req.Region
	}
	provider, err := s.newProvider(&cloudCfg, s.logger)
	if err != nil {
		return s.handleTaskError(task, "Failed to configure credential provider", err)
	}

	verbose := s.cfg.Job.Verbose
	if req.Verbose != nil {
		verbose = *req.Verbose
	}
	client, err := s.newClient(s.logger, registry.WithVerbose(verbose), registry.WithLogSink(task.AddLog))
	if err != nil {
		return s.handleTaskError(task, "Failed to connect to container runtime", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.Job.Timeout)*time.Second)
	defer cancel()

	rep := replicator.New(job, client, provider, s.logger, replicator.WithProgress(task.AddLog))
	tagged, err := rep.Run(ctx)
	task.Tagged = tagged

	if ctx.Err() == context.DeadlineExceeded {
		task.AddLog(fmt.Sprintf("Timeout exceeded (%ds)", s.cfg.Job.Timeout))
		s.logger.Error("[%s] Replication timeout after %ds", taskID, s.cfg.Job.Timeout)
		err = fmt.Errorf("replication timeout after %ds", s.cfg.Job.Timeout)
	}

	endTime := time.Now()

	if err != nil {
		task.AddLog(fmt.Sprintf("Replication failed: %v", err))
		s.logger.Error("[%s] Replication failed: %v", taskID, err)
	} else {
		task.AddLog(fmt.Sprintf("Replication completed at %s", endTime.Format(time.RFC3339)))
		s.logger.Info("[%s] Replication completed successfully (%d images)", taskID, len(tagged))
	}

	// Close all log listeners (SSE connections)
	task.CloseAllLogListeners()

	task.EndTime = &endTime
	task.Output = strings.Join(task.GetLogLines(), "\n")

	if err != nil {
		task.Status = models.StatusFailed
		task.Message = "Replication failed"
		task.ErrorOutput = err.Error()
	} else {
		task.Status = models.StatusCompleted
		task.Message = "Replication completed successfully"
	}

	if updateErr := s.repo.Update(task); updateErr != nil {
		s.logger.Error("[%s] Failed to update task status: %v", taskID, updateErr)
	}

	return nil
}

// handleTaskError updates the task with error information and marks it as failed.
func (s *replicateService) handleTaskError(task *models.ReplicationTask, message string, err error) error {
	task.AddLog(fmt.Sprintf("Error: %v", err))
	task.Status = models.StatusFailed
	task.Message = message
	task.ErrorOutput = err.Error()
	endTime := time.Now()
	task.EndTime = &endTime
	task.CloseAllLogListeners()

	if updateErr := s.repo.Update(task); updateErr != nil {
		s.logger.Error("[%s] Failed to update task: %v", task.ID, updateErr)
	}

	s.logger.Error("[%s] %s: %v", task.ID, message, err)
	return fmt.Errorf("%s: %w", message, err)
}

// ListTasks retrieves a paginated and filtered list of replication tasks.
func (s *replicateService) ListTasks(req *models.TaskListRequest) (*models.TaskListResponse, error) {
	tasks, err := s.repo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	filtered := tasks
	if req.Status != "" {
		filtered = []*models.ReplicationTask{}
		for _, task := range tasks {
			if task.Status == req.Status {
				filtered = append(filtered, task)
			}
		}
	}

	sortTasks(filtered, req.SortBy, req.SortOrder)

	total := len(filtered)
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	pagedTasks := filtered[start:end]

	summaries := make([]*models.TaskSummary, len(pagedTasks))
	for i, task := range pagedTasks {
		summaries[i] = &models.TaskSummary{
			ID:             task.ID,
			SourceRegistry: task.SourceRegistry,
			DestRegistry:   task.DestRegistry,
			Images:         task.Images,
			Cloud:          task.Cloud,
			Status:         task.Status,
			Message:        task.Message,
			StartTime:      task.StartTime,
			EndTime:        task.EndTime,
		}
	}

	return &models.TaskListResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Tasks:    summaries,
	}, nil
}

// sortTasks sorts a slice of tasks in-place.
// Supports sorting by startTime or endTime, in ascending or descending order.
func sortTasks(tasks []*models.ReplicationTask, sortBy, sortOrder string) {
	if len(tasks) <= 1 {
		return
	}

	// Simple bubble sort for small datasets (sufficient for task lists)
	for i := 0; i < len(tasks)-1; i++ {
		for j := 0; j < len(tasks)-i-1; j++ {
			shouldSwap := false
			if sortBy == "endTime" {
				t1 := tasks[j].EndTime
				t2 := tasks[j+1].EndTime
				// Handle nil endTime (for running tasks)
				if t1 == nil && t2 != nil {
					shouldSwap = sortOrder == "asc"
				} else if t1 != nil && t2 == nil {
					shouldSwap = sortOrder == "desc"
				} else if t1 != nil && t2 != nil {
					if sortOrder == "desc" {
						shouldSwap = t1.Before(*t2)
					} else {
						shouldSwap = t1.After(*t2)
					}
				}
			} else {
				// Default to startTime
				if sortOrder == "desc" {
					shouldSwap = tasks[j].StartTime.Before(tasks[j+1].StartTime)
				} else {
					shouldSwap = tasks[j].StartTime.After(tasks[j+1].StartTime)
				}
			}
			if shouldSwap {
				tasks[j], tasks[j+1] = tasks[j+1], tasks[j]
			}
		}
	}
}
