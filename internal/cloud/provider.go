// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cloud resolves push credentials for managed container registries.
// One provider implementation exists per supported cloud; the provider is
// selected once at configuration time.
package cloud

import (
	"context"
	"fmt"

	"github.com/orbitops/registry-replicator/internal/pkg/logger"
	"github.com/orbitops/registry-replicator/internal/types"
)

// Provider resolves credentials usable to push to a destination registry.
type Provider interface {
	// Kind returns the cloud this provider serves.
	Kind() types.CloudKind
	// Credentials returns push credentials for the destination registry,
	// or nil when the provider performs no authentication.
	Credentials(ctx context.Context, destRegistry string) (*types.RegistryCredentials, error)
}

// ForKind returns the provider for the configured cloud kind.
func ForKind(cfg *types.CloudConfig, log logger.Logger) (Provider, error) {
	switch cfg.Kind {
	case types.CloudAWS:
		return NewECRProvider(cfg, log), nil
	case types.CloudAzure:
		return NewACRProvider(log), nil
	case types.CloudNone:
		return &anonymousProvider{}, nil
	}
	return nil, fmt.Errorf("unsupported cloud %q", cfg.Kind)
}

// anonymousProvider performs no authentication. Pushes only succeed against
// registries that accept anonymous writes or a prior daemon login.
type anonymousProvider struct{}

func (p *anonymousProvider) Kind() types.CloudKind {
	return types.CloudNone
}

func (p *anonymousProvider) Credentials(ctx context.Context, destRegistry string) (*types.RegistryCredentials, error) {
	return nil, nil
}
