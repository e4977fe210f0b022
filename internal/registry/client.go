// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package registry is a thin facade over the local Docker daemon for the
// pull, tag, push and inspect operations the replicator needs.
package registry

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/image"
	registrytypes "github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"

	"github.com/orbitops/registry-replicator/internal/pkg/logger"
	"github.com/orbitops/registry-replicator/internal/types"
)

// Client performs image operations against the local container runtime.
type Client interface {
	// Pull fetches registry/image into local image storage. With complete
	// credentials it logs in to the registry first. There is no local
	// short-circuit; a network fetch is always attempted.
	Pull(ctx context.Context, registryURL, imageName string, creds *types.RegistryCredentials) error
	// Tag resolves the local oldRegistry/image reference and applies the
	// derived destination reference to it.
	Tag(ctx context.Context, imageName, oldRegistry, destRegistry string, cloud types.CloudKind) (TargetRef, error)
	// Push uploads the target reference. With complete credentials it logs
	// in and attaches them; otherwise the push relies on whatever login the
	// daemon's credential store already holds.
	Push(ctx context.Context, target TargetRef, creds *types.RegistryCredentials) error
	// Platforms lists the platforms an image manifest provides, queried
	// from its registry without pulling.
	Platforms(ctx context.Context, imageRef string, creds *types.RegistryCredentials) ([]string, error)
}

// RuntimeAPI is the subset of the Docker client used by the facade.
// Tests inject fakes through it.
type RuntimeAPI interface {
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ImageTag(ctx context.Context, source, target string) error
	ImagePush(ctx context.Context, refStr string, options image.PushOptions) (io.ReadCloser, error)
	RegistryLogin(ctx context.Context, auth registrytypes.AuthConfig) (registrytypes.AuthenticateOKBody, error)
	DistributionInspect(ctx context.Context, imageRef, encodedRegistryAuth string) (registrytypes.DistributionInspect, error)
}

// dockerClient implements Client on top of the Docker Engine API.
type dockerClient struct {
	api     RuntimeAPI
	log     logger.Logger
	verbose bool
	sink    func(line string)
}

// Option configures a docker client.
type Option func(*dockerClient)

// WithLogSink streams progress lines to the given sink in addition to the logger.
func WithLogSink(sink func(line string)) Option {
	return func(c *dockerClient) {
		c.sink = sink
	}
}

// WithVerbose enables per-line progress logging for pull and push streams.
func WithVerbose(verbose bool) Option {
	return func(c *dockerClient) {
		c.verbose = verbose
	}
}

// NewDockerClient connects to the local Docker daemon using the standard
// environment configuration (DOCKER_HOST etc.).
func NewDockerClient(log logger.Logger, opts ...Option) (Client, error) {
	api, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to container runtime: %w", err)
	}
	return NewWithRuntime(api, log, opts...), nil
}

// NewWithRuntime builds a client over an existing runtime API.
func NewWithRuntime(api RuntimeAPI, log logger.Logger, opts ...Option) Client {
	c := &dockerClient{api: api, log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *dockerClient) Pull(ctx context.Context, registryURL, imageName string, creds *types.RegistryCredentials) error {
	ref := registryURL + "/" + imageName

	encodedAuth := ""
	if creds.Complete() {
		if err := c.login(ctx, registryURL, creds); err != nil {
			return fmt.Errorf("login to %s failed: %w", registryURL, err)
		}
		var err error
		encodedAuth, err = encodeAuth(registryURL, creds)
		if err != nil {
			return err
		}
	}

	c.log.Info("Pulling %s", ref)
	reader, err := c.api.ImagePull(ctx, ref, image.PullOptions{RegistryAuth: encodedAuth})
	if err != nil {
		return fmt.Errorf("failed to pull %s: %w", ref, err)
	}
	defer reader.Close()

	return c.drainProgress(reader)
}

func (c *dockerClient) Tag(ctx context.Context, imageName, oldRegistry, destRegistry string, cloud types.CloudKind) (TargetRef, error) {
	source := oldRegistry + "/" + imageName
	target := DeriveTarget(imageName, destRegistry, cloud)

	c.log.Debug("Tagging %s as %s", source, target)
	if err := c.api.ImageTag(ctx, source, target.String()); err != nil {
		return TargetRef{}, fmt.Errorf("failed to tag %s as %s: %w", source, target, err)
	}
	return target, nil
}

func (c *dockerClient) Push(ctx context.Context, target TargetRef, creds *types.RegistryCredentials) error {
	encodedAuth := ""
	if creds.Complete() {
		if err := c.login(ctx, creds.Registry, creds); err != nil {
			return fmt.Errorf("login to %s failed: %w", creds.Registry, err)
		}
		var err error
		encodedAuth, err = encodeAuth(creds.Registry, creds)
		if err != nil {
			return err
		}
	}

	c.log.Info("Pushing %s", target)
	reader, err := c.api.ImagePush(ctx, target.String(), image.PushOptions{RegistryAuth: encodedAuth})
	if err != nil {
		return fmt.Errorf("failed to push %s: %w", target, err)
	}
	defer reader.Close()

	return c.drainProgress(reader)
}

func (c *dockerClient) Platforms(ctx context.Context, imageRef string, creds *types.RegistryCredentials) ([]string, error) {
	encodedAuth := ""
	if creds.Complete() {
		var err error
		encodedAuth, err = encodeAuth(creds.Registry, creds)
		if err != nil {
			return nil, err
		}
	}

	inspect, err := c.api.DistributionInspect(ctx, imageRef, encodedAuth)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", imageRef, err)
	}

	platforms := make([]string, 0, len(inspect.Platforms))
	for _, p := range inspect.Platforms {
		s := p.OS + "/" + p.Architecture
		if p.Variant != "" {
			s += "/" + p.Variant
		}
		platforms = append(platforms, s)
	}
	return platforms, nil
}

func (c *dockerClient) login(ctx context.Context, registryURL string, creds *types.RegistryCredentials) error {
	_, err := c.api.RegistryLogin(ctx, registrytypes.AuthConfig{
		Username:      creds.Username,
		Password:      creds.Password,
		ServerAddress: registryURL,
	})
	return err
}

// drainProgress consumes a pull/push progress stream. The daemon reports
// errors in-stream, so the stream must be read to completion to detect them.
func (c *dockerClient) drainProgress(reader io.Reader) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		var msg struct {
			Status string `json:"status"`
			ID     string `json:"id"`
			Error  string `json:"error"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		if msg.Error != "" {
			return fmt.Errorf("runtime reported error: %s", msg.Error)
		}
		if msg.Status == "" {
			continue
		}
		line := msg.Status
		if msg.ID != "" {
			line = msg.ID + ": " + msg.Status
		}
		if c.sink != nil {
			c.sink(line)
		}
		if c.verbose {
			c.log.Debug("%s", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read runtime output: %w", err)
	}
	return nil
}

func encodeAuth(registryURL string, creds *types.RegistryCredentials) (string, error) {
	encoded, err := registrytypes.EncodeAuthConfig(registrytypes.AuthConfig{
		Username:      creds.Username,
		Password:      creds.Password,
		ServerAddress: registryURL,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode registry auth: %w", err)
	}
	return encoded, nil
}
