// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package validator provides input validation for user-supplied values.
// Image names and credentials end up in runtime API calls and, for Azure,
// in a subprocess invocation, so they are checked before use.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"

	"github.com/orbitops/registry-replicator/internal/types"
)

const (
	maxImageNameLength  = 255
	maxCredentialLength = 256
)

// imageNameRegex matches repository paths with an optional tag or digest,
// e.g. "library/nginx:1.25" or "app/service@sha256:abc...".
var imageNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._/-]*(:[a-zA-Z0-9._-]+)?(@sha256:[a-fA-F0-9]{64})?$`)

// regionRegex matches AWS region identifiers, e.g. "eu-central-1".
var regionRegex = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d$`)

// ValidateSourceURL checks that a source registry address is a well-formed URL.
func ValidateSourceURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("source registry URL is required")
	}
	if !govalidator.IsRequestURL(rawURL) {
		return fmt.Errorf("source registry %q is not a valid URL", rawURL)
	}
	return nil
}

// ValidateImageName checks that an image name is well-formed and free of
// characters that could escape a command line or API call.
func ValidateImageName(name string) error {
	if name == "" {
		return fmt.Errorf("image name is required")
	}
	if len(name) > maxImageNameLength {
		return fmt.Errorf("image name exceeds %d characters", maxImageNameLength)
	}
	if !imageNameRegex.MatchString(name) {
		return fmt.Errorf("invalid image name: %s", name)
	}
	return nil
}

// ValidateCredentials checks that a username/password pair contains no
// control characters and stays within sane length limits. Empty values are
// allowed; anonymous access is a supported mode.
func ValidateCredentials(username, password string) error {
	for _, v := range []string{username, password} {
		if len(v) > maxCredentialLength {
			return fmt.Errorf("credential exceeds %d characters", maxCredentialLength)
		}
		if strings.ContainsAny(v, "\x00\n\r") {
			return fmt.Errorf("credential contains control characters")
		}
	}
	return nil
}

// ValidateCloud checks the cloud kind and its required settings.
func ValidateCloud(kind types.CloudKind, region string) error {
	if !kind.Valid() {
		return fmt.Errorf("unsupported cloud %q (supported: aws, azure)", kind)
	}
	if kind == types.CloudAWS {
		if region == "" {
			return fmt.Errorf("region is required for cloud aws")
		}
		if !regionRegex.MatchString(region) {
			return fmt.Errorf("invalid AWS region: %s", region)
		}
	}
	return nil
}
