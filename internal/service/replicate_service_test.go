// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

package service

import (
	"context"
	"testing"

	"github.com/orbitops/registry-replicator/internal/cloud"
	"github.com/orbitops/registry-replicator/internal/models"
	"github.com/orbitops/registry-replicator/internal/pkg/logger"
	"github.com/orbitops/registry-replicator/internal/registry"
	"github.com/orbitops/registry-replicator/internal/repository"
	"github.com/orbitops/registry-replicator/internal/types"
)

// recordingClient is a registry client fake shared by the service tests.
type recordingClient struct {
	pulls  int
	pushes int
}

var _ registry.Client = (*recordingClient)(nil)

func (c *recordingClient) Pull(ctx context.Context, registryURL, imageName string, creds *types.RegistryCredentials) error {
	c.pulls++
	return nil
}

func (c *recordingClient) Tag(ctx context.Context, imageName, oldRegistry, destRegistry string, cloudKind types.CloudKind) (registry.TargetRef, error) {
	return registry.DeriveTarget(imageName, destRegistry, cloudKind), nil
}

func (c *recordingClient) Push(ctx context.Context, target registry.TargetRef, creds *types.RegistryCredentials) error {
	c.pushes++
	return nil
}

func (c *recordingClient) Platforms(ctx context.Context, imageRef string, creds *types.RegistryCredentials) ([]string, error) {
	return []string{"linux/amd64"}, nil
}

// anonProvider satisfies cloud.Provider without any cloud calls.
type anonProvider struct{}

func (anonProvider) Kind() types.CloudKind { return types.CloudNone }
func (anonProvider) Credentials(ctx context.Context, destRegistry string) (*types.RegistryCredentials, error) {
	return nil, nil
}

func testConfig() *types.Config {
	return &types.Config{
		Job: types.JobConfig{Timeout: 600},
	}
}

func newTestService(repo repository.TaskRepository, client registry.Client) ReplicateService {
	svc := NewReplicateService(repo, logger.New(), testConfig()).(*replicateService)
	svc.newClient = func(log logger.Logger, opts ...registry.Option) (registry.Client, error) {
		return client, nil
	}
	svc.newProvider = func(cfg *types.CloudConfig, log logger.Logger) (cloud.Provider, error) {
		return anonProvider{}, nil
	}
	return svc
}

func TestCreateTask(t *testing.T) {
	repo := repository.NewInMemoryTaskRepository()
	svc := newTestService(repo, &recordingClient{})

	req := &models.ReplicateRequest{
		SourceRegistry: "https://src.example.com",
		DestRegistry:   "dest.io",
		Images:         []string{"nginx:latest"},
	}

	taskID, err := svc.CreateTask(req)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if taskID == "" {
		t.Fatal("Expected non-empty task ID")
	}

	task, err := repo.Get(taskID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}

	if task.SourceRegistry != req.SourceRegistry {
		t.Errorf("Expected source registry %s, got %s", req.SourceRegistry, task.SourceRegistry)
	}

	if task.Status != models.StatusPending {
		t.Errorf("Expected status pending, got %s", task.Status)
	}
}

func TestExecuteReplication(t *testing.T) {
	repo := repository.NewInMemoryTaskRepository()
	client := &recordingClient{}
	svc := newTestService(repo, client)

	req := &models.ReplicateRequest{
		SourceRegistry: "https://src.example.com",
		DestRegistry:   "dest.io",
		Images:         []string{"app/one:v1", "app/two:v2"},
	}

	taskID, _ := svc.CreateTask(req)

	if err := svc.ExecuteReplication(taskID, req); err != nil {
		t.Fatalf("ExecuteReplication failed: %v", err)
	}

	task, _ := repo.Get(taskID)
	if task.Status != models.StatusCompleted {
		t.Errorf("Expected status completed, got %s", task.Status)
	}
	if client.pulls != 2 || client.pushes != 2 {
		t.Errorf("Expected 2 pulls and 2 pushes, got %d and %d", client.pulls, client.pushes)
	}
	if len(task.Tagged) != 2 {
		t.Errorf("Expected 2 tagged references, got %d", len(task.Tagged))
	}
	if task.EndTime == nil {
		t.Error("Expected end time to be set")
	}
}

func TestExecuteReplication_InvalidSourceURL(t *testing.T) {
	repo := repository.NewInMemoryTaskRepository()
	client := &recordingClient{}
	svc := newTestService(repo, client)

	req := &models.ReplicateRequest{
		SourceRegistry: "not a url",
		DestRegistry:   "dest.io",
		Images:         []string{"nginx:latest"},
	}

	taskID, _ := svc.CreateTask(req)

	if err := svc.ExecuteReplication(taskID, req); err == nil {
		t.Fatal("Expected error for invalid source URL")
	}

	task, _ := repo.Get(taskID)
	if task.Status != models.StatusFailed {
		t.Errorf("Expected status failed, got %s", task.Status)
	}
	if client.pulls != 0 {
		t.Errorf("Expected no pulls for invalid configuration, got %d", client.pulls)
	}
}

func TestExecuteReplication_EmptyImageList(t *testing.T) {
	repo := repository.NewInMemoryTaskRepository()
	client := &recordingClient{}
	svc := newTestService(repo, client)

	req := &models.ReplicateRequest{
		SourceRegistry: "https://src.example.com",
		DestRegistry:   "dest.io",
		Images:         []string{},
	}

	taskID, _ := svc.CreateTask(req)

	if err := svc.ExecuteReplication(taskID, req); err != nil {
		t.Fatalf("ExecuteReplication failed: %v", err)
	}

	task, _ := repo.Get(taskID)
	if task.Status != models.StatusCompleted {
		t.Errorf("Expected status completed, got %s", task.Status)
	}
	if client.pulls != 0 || client.pushes != 0 {
		t.Errorf("Expected zero runtime calls, got %d pulls and %d pushes", client.pulls, client.pushes)
	}
}

func TestGetTask(t *testing.T) {
	repo := repository.NewInMemoryTaskRepository()
	svc := newTestService(repo, &recordingClient{})

	req := &models.ReplicateRequest{
		SourceRegistry: "https://src.example.com",
		DestRegistry:   "dest.io",
		Images:         []string{"nginx:latest"},
	}

	taskID, _ := svc.CreateTask(req)

	task, err := svc.GetTask(taskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}

	if task.ID != taskID {
		t.Errorf("Expected task ID %s, got %s", taskID, task.ID)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	repo := repository.NewInMemoryTaskRepository()
	svc := newTestService(repo, &recordingClient{})

	_, err := svc.GetTask("non-existent-id")
	if err != repository.ErrTaskNotFound {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
}

func TestListTasks(t *testing.T) {
	repo := repository.NewInMemoryTaskRepository()
	svc := newTestService(repo, &recordingClient{})

	for i := 0; i < 5; i++ {
		req := &models.ReplicateRequest{
			SourceRegistry: "https://src.example.com",
			DestRegistry:   "dest.io",
			Images:         []string{"nginx:latest"},
		}
		svc.CreateTask(req)
	}

	listReq := &models.TaskListRequest{
		Page:     1,
		PageSize: 10,
	}

	resp, err := svc.ListTasks(listReq)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}

	if resp.Total != 5 {
		t.Errorf("Expected total 5, got %d", resp.Total)
	}

	if len(resp.Tasks) != 5 {
		t.Errorf("Expected 5 tasks, got %d", len(resp.Tasks))
	}
}

func TestListTasksWithPagination(t *testing.T) {
	repo := repository.NewInMemoryTaskRepository()
	svc := newTestService(repo, &recordingClient{})

	for i := 0; i < 25; i++ {
		req := &models.ReplicateRequest{
			SourceRegistry: "https://src.example.com",
			DestRegistry:   "dest.io",
			Images:         []string{"nginx:latest"},
		}
		svc.CreateTask(req)
	}

	listReq := &models.TaskListRequest{
		Page:     2,
		PageSize: 10,
	}

	resp, err := svc.ListTasks(listReq)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}

	if resp.Total != 25 {
		t.Errorf("Expected total 25, got %d", resp.Total)
	}

	if len(resp.Tasks) != 10 {
		t.Errorf("Expected 10 tasks on page 2, got %d", len(resp.Tasks))
	}
}

func TestListTasksFilterByStatus(t *testing.T) {
	repo := repository.NewInMemoryTaskRepository()
	svc := newTestService(repo, &recordingClient{})

	for i := 0; i < 3; i++ {
		req := &models.ReplicateRequest{
			SourceRegistry: "https://src.example.com",
			DestRegistry:   "dest.io",
			Images:         []string{"nginx:latest"},
		}
		taskID, _ := svc.CreateTask(req)
		task, _ := repo.Get(taskID)
		if i == 0 {
			task.Status = models.StatusCompleted
			repo.Update(task)
		}
	}

	listReq := &models.TaskListRequest{
		Status: models.StatusPending,
	}

	resp, err := svc.ListTasks(listReq)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}

	if resp.Total != 2 {
		t.Errorf("Expected 2 pending tasks, got %d", resp.Total)
	}
}
