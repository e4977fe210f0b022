// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package replicator drives the image replication sequence: for each
// configured image, pull from the source registry, retag for the
// destination, and push with credentials resolved once per run.
package replicator

import (
	"context"
	"fmt"
	"strings"

	"github.com/orbitops/registry-replicator/internal/cloud"
	"github.com/orbitops/registry-replicator/internal/pkg/logger"
	"github.com/orbitops/registry-replicator/internal/pkg/validator"
	"github.com/orbitops/registry-replicator/internal/registry"
	"github.com/orbitops/registry-replicator/internal/types"
)

// Job is the immutable description of one replication run.
type Job struct {
	SourceRegistry string                     // Source registry, scheme stripped
	DestRegistry   string                     // Destination registry
	Images         []string                   // Images to replicate, in order
	Cloud          types.CloudKind            // Destination cloud kind
	SourceCreds    *types.RegistryCredentials // Optional pull credentials for the source
	StrictAuth     bool                       // Fail instead of pushing with incomplete credentials
}

// NewJob validates the source registry URL and builds a job. The stored
// source registry is the input with its "https://" prefix stripped and no
// other transformation. An invalid source URL is a configuration error: no
// job is created and no credential setup happens.
func NewJob(sourceRegistry, destRegistry string, images []string, cloudKind types.CloudKind) (*Job, error) {
	if err := validator.ValidateSourceURL(sourceRegistry); err != nil {
		return nil, err
	}
	if destRegistry == "" {
		return nil, fmt.Errorf("destination registry is required")
	}
	if !cloudKind.Valid() {
		return nil, fmt.Errorf("unsupported cloud %q", cloudKind)
	}

	return &Job{
		SourceRegistry: strings.TrimPrefix(sourceRegistry, "https://"),
		DestRegistry:   destRegistry,
		Images:         images,
		Cloud:          cloudKind,
	}, nil
}

// Replicator executes one job against a registry client.
type Replicator struct {
	job      *Job
	client   registry.Client
	provider cloud.Provider
	log      logger.Logger
	progress func(line string)
}

// Option configures a replicator.
type Option func(*Replicator)

// WithProgress reports per-step progress lines to the given callback.
func WithProgress(progress func(line string)) Option {
	return func(r *Replicator) {
		r.progress = progress
	}
}

// New creates a replicator for a validated job.
func New(job *Job, client registry.Client, provider cloud.Provider, log logger.Logger, opts ...Option) *Replicator {
	r := &Replicator{
		job:      job,
		client:   client,
		provider: provider,
		log:      log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run resolves destination credentials once, then replicates each image
// strictly in the configured order. The first failure aborts the remaining
// images. The returned slice holds the destination reference of every image
// that was tagged, in order.
func (r *Replicator) Run(ctx context.Context) ([]registry.TargetRef, error) {
	creds, err := r.provider.Credentials(ctx, r.job.DestRegistry)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination credentials: %w", err)
	}

	r.log.Info("Images to replicate: %v", r.job.Images)

	tagged := make([]registry.TargetRef, 0, len(r.job.Images))
	for _, img := range r.job.Images {
		target, err := r.replicateOne(ctx, img, creds)
		if err != nil {
			return tagged, fmt.Errorf("failed to replicate %s: %w", img, err)
		}
		tagged = append(tagged, target)
	}
	return tagged, nil
}

func (r *Replicator) replicateOne(ctx context.Context, img string, creds *types.RegistryCredentials) (registry.TargetRef, error) {
	r.report("Replicating %s", img)

	if err := r.client.Pull(ctx, r.job.SourceRegistry, img, r.job.SourceCreds); err != nil {
		return registry.TargetRef{}, err
	}

	target, err := r.client.Tag(ctx, img, r.job.SourceRegistry, r.job.DestRegistry, r.job.Cloud)
	if err != nil {
		return registry.TargetRef{}, err
	}

	if r.job.StrictAuth && r.job.Cloud != types.CloudNone && !creds.Complete() {
		return registry.TargetRef{}, fmt.Errorf("incomplete credentials for %s and strict auth is enabled", r.job.DestRegistry)
	}

	if err := r.client.Push(ctx, target, creds); err != nil {
		return registry.TargetRef{}, err
	}

	r.report("Replicated %s -> %s", img, target)
	return target, nil
}

func (r *Replicator) report(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	r.log.Info("%s", line)
	if r.progress != nil {
		r.progress(line)
	}
}
