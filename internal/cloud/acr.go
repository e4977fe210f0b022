// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/orbitops/registry-replicator/internal/pkg/logger"
	"github.com/orbitops/registry-replicator/internal/types"
)

// acrTokenUsername is the sentinel username ACR expects when authenticating
// with an access token instead of a service principal.
const acrTokenUsername = "00000000-0000-0000-0000-000000000000"

// CommandRunner executes an external command and returns its stdout.
// It is the single seam through which the ACR provider reaches the az CLI.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ACRProvider obtains an ACR access token by shelling out to the Azure CLI.
type ACRProvider struct {
	runner CommandRunner
	log    logger.Logger
}

// NewACRProvider creates a provider backed by the az CLI.
func NewACRProvider(log logger.Logger) *ACRProvider {
	return &ACRProvider{
		runner: runCommand,
		log:    log,
	}
}

func (p *ACRProvider) Kind() types.CloudKind {
	return types.CloudAzure
}

// Credentials runs "az acr login --expose-token" for the registry named by
// the destination's first DNS label and parses the exposed access token.
func (p *ACRProvider) Credentials(ctx context.Context, destRegistry string) (*types.RegistryCredentials, error) {
	registryName := strings.Split(destRegistry, ".")[0]

	p.log.Debug("Requesting ACR access token for registry %s", registryName)
	out, err := p.runner(ctx, "az", "acr", "login", "--name", registryName, "--expose-token", "--output", "json")
	if err != nil {
		return nil, fmt.Errorf("az acr login failed for %s: %w", registryName, err)
	}

	var result struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("failed to parse az acr login output: %w", err)
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("az acr login returned no access token for %s", registryName)
	}

	return &types.RegistryCredentials{
		Username: acrTokenUsername,
		Password: result.AccessToken,
		Registry: destRegistry,
	}, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
