// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cloud

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ecr"
	"gopkg.in/ini.v1"

	"github.com/orbitops/registry-replicator/internal/pkg/logger"
	"github.com/orbitops/registry-replicator/internal/types"
)

// ecrUsername is the fixed username ECR authorization tokens are issued for.
const ecrUsername = "AWS"

// ecrAPI is the subset of the ECR control-plane API used by the provider.
type ecrAPI interface {
	GetAuthorizationTokenWithContext(aws.Context, *ecr.GetAuthorizationTokenInput, ...request.Option) (*ecr.GetAuthorizationTokenOutput, error)
}

// ECRProvider exchanges local AWS credentials for a short-lived ECR
// authorization token.
type ECRProvider struct {
	region          string
	credentialsFile string
	newClient       func(region, accessKeyID, secretAccessKey string) ecrAPI
	log             logger.Logger
}

// NewECRProvider creates a provider for the configured AWS region.
func NewECRProvider(cfg *types.CloudConfig, log logger.Logger) *ECRProvider {
	return &ECRProvider{
		region:          cfg.Region,
		credentialsFile: cfg.CredentialsFile,
		newClient:       newECRClient,
		log:             log,
	}
}

func (p *ECRProvider) Kind() types.CloudKind {
	return types.CloudAWS
}

// Credentials requests an authorization token from the ECR control plane.
// The token decodes to "AWS:<password>"; the password half is returned with
// the fixed "AWS" username and the destination registry unchanged.
func (p *ECRProvider) Credentials(ctx context.Context, destRegistry string) (*types.RegistryCredentials, error) {
	accessKeyID, secretAccessKey := p.loadSharedCredentials()

	client := p.newClient(p.region, accessKeyID, secretAccessKey)
	out, err := client.GetAuthorizationTokenWithContext(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to get ECR authorization token: %w", err)
	}
	if len(out.AuthorizationData) == 0 {
		return nil, fmt.Errorf("ECR returned no authorization data")
	}

	decoded, err := base64.StdEncoding.DecodeString(aws.StringValue(out.AuthorizationData[0].AuthorizationToken))
	if err != nil {
		return nil, fmt.Errorf("failed to decode ECR authorization token: %w", err)
	}

	return &types.RegistryCredentials{
		Username: ecrUsername,
		Password: strings.TrimPrefix(string(decoded), ecrUsername+":"),
		Registry: destRegistry,
	}, nil
}

// loadSharedCredentials reads the default profile of the AWS shared
// credentials file. A missing or malformed file is reported and the static
// keys are left unset; the SDK then falls back to its default credential
// chain, matching the lenient behavior of prior releases.
func (p *ECRProvider) loadSharedCredentials() (string, string) {
	path := p.credentialsFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			p.log.Error("Failed to locate home directory: %v", err)
			return "", ""
		}
		path = filepath.Join(home, ".aws", "credentials")
	}

	cfg, err := ini.Load(path)
	if err != nil {
		p.log.Error("Failed to parse AWS credentials file %s: %v", path, err)
		return "", ""
	}

	section := cfg.Section("default")
	return section.Key("aws_access_key_id").Value(), section.Key("aws_secret_access_key").Value()
}

// newECRClient builds a regional ECR client, using static credentials when
// both keys were read from the shared credentials file.
func newECRClient(region, accessKeyID, secretAccessKey string) ecrAPI {
	awsConfig := &aws.Config{Region: aws.String(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(accessKeyID, secretAccessKey, "")
	}
	return ecr.New(session.Must(session.NewSession(awsConfig)))
}
