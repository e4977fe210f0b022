// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

package replicator

import (
	"context"
	"fmt"
	"testing"

	"github.com/orbitops/registry-replicator/internal/pkg/logger"
	"github.com/orbitops/registry-replicator/internal/registry"
	"github.com/orbitops/registry-replicator/internal/types"
)

// fakeClient records the registry operations performed by a run.
type fakeClient struct {
	pulls     []string
	tags      []string
	pushes    []registry.TargetRef
	pushCreds []*types.RegistryCredentials
	tagErr    error
	pullErr   error
}

var _ registry.Client = (*fakeClient)(nil)

func (f *fakeClient) Pull(ctx context.Context, registryURL, imageName string, creds *types.RegistryCredentials) error {
	if f.pullErr != nil {
		return f.pullErr
	}
	f.pulls = append(f.pulls, registryURL+"/"+imageName)
	return nil
}

func (f *fakeClient) Tag(ctx context.Context, imageName, oldRegistry, destRegistry string, cloud types.CloudKind) (registry.TargetRef, error) {
	if f.tagErr != nil {
		return registry.TargetRef{}, f.tagErr
	}
	f.tags = append(f.tags, imageName)
	return registry.DeriveTarget(imageName, destRegistry, cloud), nil
}

func (f *fakeClient) Push(ctx context.Context, target registry.TargetRef, creds *types.RegistryCredentials) error {
	f.pushes = append(f.pushes, target)
	f.pushCreds = append(f.pushCreds, creds)
	return nil
}

func (f *fakeClient) Platforms(ctx context.Context, imageRef string, creds *types.RegistryCredentials) ([]string, error) {
	return nil, nil
}

// fakeProvider returns fixed credentials and counts invocations.
type fakeProvider struct {
	kind  types.CloudKind
	creds *types.RegistryCredentials
	err   error
	calls int
}

func (f *fakeProvider) Kind() types.CloudKind {
	return f.kind
}

func (f *fakeProvider) Credentials(ctx context.Context, destRegistry string) (*types.RegistryCredentials, error) {
	f.calls++
	return f.creds, f.err
}

func TestNewJobStripsHTTPSPrefix(t *testing.T) {
	job, err := NewJob("https://registry.example.com", "dest.io", []string{"nginx"}, types.CloudNone)
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if job.SourceRegistry != "registry.example.com" {
		t.Errorf("Expected 'registry.example.com', got '%s'", job.SourceRegistry)
	}
}

func TestNewJobKeepsHTTPPrefix(t *testing.T) {
	// Only the https:// prefix is stripped; nothing else is rewritten.
	job, err := NewJob("http://registry.example.com:5000", "dest.io", nil, types.CloudNone)
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if job.SourceRegistry != "http://registry.example.com:5000" {
		t.Errorf("Expected source unchanged, got '%s'", job.SourceRegistry)
	}
}

func TestNewJobRejectsInvalidSourceURL(t *testing.T) {
	for _, src := range []string{"", "not a url", "registry.example.com"} {
		if _, err := NewJob(src, "dest.io", nil, types.CloudNone); err == nil {
			t.Errorf("Expected error for source %q", src)
		}
	}
}

func TestRunReplicatesInOrder(t *testing.T) {
	job, err := NewJob("https://src.example.com", "myregistry.io", []string{"app/one:v1", "app/two:v2"}, types.CloudNone)
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	client := &fakeClient{}
	provider := &fakeProvider{kind: types.CloudNone}
	rep := New(job, client, provider, logger.New())

	tagged, err := rep.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	wantPulls := []string{"src.example.com/app/one:v1", "src.example.com/app/two:v2"}
	for i, want := range wantPulls {
		if client.pulls[i] != want {
			t.Errorf("Expected pull %d to be %q, got %q", i, want, client.pulls[i])
		}
	}

	if len(tagged) != 2 {
		t.Fatalf("Expected 2 tagged images, got %d", len(tagged))
	}
	if tagged[0].Repository != "myregistry.io/app/one:v1" || tagged[0].Tag != "latest" {
		t.Errorf("Unexpected first target: %+v", tagged[0])
	}
}

func TestRunResolvesCredentialsOnceAndReusesThem(t *testing.T) {
	job, err := NewJob("https://src.example.com", "dest.io", []string{"a", "b", "c"}, types.CloudAWS)
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	creds := &types.RegistryCredentials{Username: "AWS", Password: "token", Registry: "dest.io"}
	client := &fakeClient{}
	provider := &fakeProvider{kind: types.CloudAWS, creds: creds}
	rep := New(job, client, provider, logger.New())

	if _, err := rep.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if provider.calls != 1 {
		t.Errorf("Expected 1 credential resolution, got %d", provider.calls)
	}
	if len(client.pushCreds) != 3 {
		t.Fatalf("Expected 3 pushes, got %d", len(client.pushCreds))
	}
	for i, got := range client.pushCreds {
		if got != creds {
			t.Errorf("Push %d did not reuse the run credentials: %+v", i, got)
		}
	}
}

func TestRunEmptyImageList(t *testing.T) {
	job, err := NewJob("https://src.example.com", "dest.io", nil, types.CloudNone)
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	client := &fakeClient{}
	rep := New(job, client, &fakeProvider{}, logger.New())

	tagged, err := rep.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(tagged) != 0 {
		t.Errorf("Expected no tagged images, got %d", len(tagged))
	}
	if len(client.pulls) != 0 || len(client.tags) != 0 || len(client.pushes) != 0 {
		t.Error("Expected zero runtime calls for an empty image list")
	}
}

func TestRunAbortsOnTagFailure(t *testing.T) {
	job, err := NewJob("https://src.example.com", "dest.io", []string{"a", "b"}, types.CloudNone)
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	client := &fakeClient{tagErr: fmt.Errorf("no such image")}
	rep := New(job, client, &fakeProvider{}, logger.New())

	if _, err := rep.Run(context.Background()); err == nil {
		t.Fatal("Expected error from tag failure")
	}
	if len(client.pushes) != 0 {
		t.Errorf("Expected no pushes after tag failure, got %d", len(client.pushes))
	}
	if len(client.pulls) != 1 {
		t.Errorf("Expected the failure to abort the remaining images, got %d pulls", len(client.pulls))
	}
}

func TestRunStrictAuthRejectsIncompleteCredentials(t *testing.T) {
	job, err := NewJob("https://src.example.com", "dest.io", []string{"a"}, types.CloudAWS)
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	job.StrictAuth = true

	client := &fakeClient{}
	provider := &fakeProvider{kind: types.CloudAWS, creds: &types.RegistryCredentials{Username: "AWS"}}
	rep := New(job, client, provider, logger.New())

	if _, err := rep.Run(context.Background()); err == nil {
		t.Fatal("Expected strict auth to reject incomplete credentials")
	}
	if len(client.pushes) != 0 {
		t.Errorf("Expected no pushes, got %d", len(client.pushes))
	}
}

func TestRunLenientAuthPushesWithIncompleteCredentials(t *testing.T) {
	job, err := NewJob("https://src.example.com", "dest.io", []string{"a"}, types.CloudAWS)
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	client := &fakeClient{}
	provider := &fakeProvider{kind: types.CloudAWS, creds: &types.RegistryCredentials{Username: "AWS"}}
	rep := New(job, client, provider, logger.New())

	if _, err := rep.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(client.pushes) != 1 {
		t.Errorf("Expected 1 push, got %d", len(client.pushes))
	}
}

func TestRunFailsWhenProviderFails(t *testing.T) {
	job, err := NewJob("https://src.example.com", "dest.io", []string{"a"}, types.CloudAzure)
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	client := &fakeClient{}
	provider := &fakeProvider{kind: types.CloudAzure, err: fmt.Errorf("az not found")}
	rep := New(job, client, provider, logger.New())

	if _, err := rep.Run(context.Background()); err == nil {
		t.Fatal("Expected error when credential resolution fails")
	}
	if len(client.pulls) != 0 {
		t.Error("Expected no pulls when credential resolution fails")
	}
}
