// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/orbitops/registry-replicator/internal/models"
	"github.com/orbitops/registry-replicator/internal/pkg/logger"
	"github.com/orbitops/registry-replicator/internal/registry"
	"github.com/orbitops/registry-replicator/internal/types"
)

const imageInspectTimeout = 30 * time.Second

// ImageService defines the interface for image inspection operations.
type ImageService interface {
	InspectImage(req *models.InspectRequest) (*models.InspectResponse, error)
}

// imageService implements the ImageService interface.
type imageService struct {
	logger    logger.Logger
	newClient clientFactory
}

// NewImageService creates a new ImageService instance.
func NewImageService(logger logger.Logger) ImageService {
	return &imageService{
		logger:    logger,
		newClient: registry.NewDockerClient,
	}
}

// InspectImage queries the image's registry for its manifest and returns the
// platforms it provides, without pulling the image.
func (s *imageService) InspectImage(req *models.InspectRequest) (*models.InspectResponse, error) {
	client, err := s.newClient(s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to container runtime: %w", err)
	}

	var creds *types.RegistryCredentials
	if req.Username != "" && req.Password != "" {
		creds = &types.RegistryCredentials{
			Username: req.Username,
			Password: req.Password,
			Registry: req.Image,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), imageInspectTimeout)
	defer cancel()

	s.logger.Info("Inspecting image: %s", req.Image)

	platforms, err := client.Platforms(ctx, req.Image, creds)
	if err != nil {
		s.logger.Error("Failed to inspect image %s: %v", req.Image, err)
		return nil, fmt.Errorf("failed to inspect image: %w", err)
	}

	s.logger.Info("Image %s has %d platform(s)", req.Image, len(platforms))

	return &models.InspectResponse{
		Platforms: platforms,
	}, nil
}
