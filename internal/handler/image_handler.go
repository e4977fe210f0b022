// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitops/registry-replicator/internal/models"
	apperrors "github.com/orbitops/registry-replicator/internal/pkg/errors"
	"github.com/orbitops/registry-replicator/internal/pkg/logger"
	"github.com/orbitops/registry-replicator/internal/pkg/validator"
	"github.com/orbitops/registry-replicator/internal/service"
)

// ImageHandler handles HTTP requests related to image inspection.
type ImageHandler struct {
	imageService service.ImageService
	logger       logger.Logger
}

// NewImageHandler creates a new ImageHandler instance.
func NewImageHandler(imageService service.ImageService, logger logger.Logger) *ImageHandler {
	return &ImageHandler{
		imageService: imageService,
		logger:       logger,
	}
}

// handleError processes errors and sends appropriate HTTP responses.
func (h *ImageHandler) handleError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode, gin.H{"error": appErr.Message})
	} else {
		h.logger.Error("Unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// InspectImage inspects a container image and returns the platforms its
// manifest provides.
//
// Request body (JSON):
//   - image (required): Image address (e.g., "docker.io/library/nginx:latest")
//   - username (optional): Registry username
//   - password (optional): Registry password
//
// Response (200 OK):
//
//	{"platforms": ["linux/amd64", "linux/arm64", "linux/arm/v7"]}
//
// Error responses: 400 (invalid input), 500 (inspection failed)
func (h *ImageHandler) InspectImage(c *gin.Context) {
	var req models.InspectRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid request body"))
		return
	}

	if err := validator.ValidateImageName(req.Image); err != nil {
		h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid image name"))
		return
	}

	if err := validator.ValidateCredentials(req.Username, req.Password); err != nil {
		h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid credentials"))
		return
	}

	resp, err := h.imageService.InspectImage(&req)
	if err != nil {
		h.handleError(c, apperrors.WrapCommandFailed(err, "Failed to inspect image"))
		return
	}

	c.JSON(http.StatusOK, resp)
}
