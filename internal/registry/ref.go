// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

package registry

import (
	"strings"

	"github.com/orbitops/registry-replicator/internal/types"
)

// TargetRef is the destination reference derived for a replicated image.
type TargetRef struct {
	Repository string `json:"repository"` // Destination repository
	Tag        string `json:"tag"`        // Destination tag
}

func (r TargetRef) String() string {
	return r.Repository + ":" + r.Tag
}

// awsTagReplacer collapses an image name-and-tag into a single tag token.
var awsTagReplacer = strings.NewReplacer("/", "-", ":", "-")

// DeriveTarget computes the destination reference for an image.
//
// ECR repositories are not created implicitly, so for an AWS destination all
// images land in the one repository named by the destination registry itself
// and are differentiated by tag: the original name-and-tag collapsed into a
// single token ("app/service:v1" -> "app-service-v1"). Any other destination
// keeps the image name as the repository path under the destination registry,
// tagged "latest".
func DeriveTarget(imageName, destRegistry string, cloud types.CloudKind) TargetRef {
	if cloud == types.CloudAWS {
		return TargetRef{
			Repository: destRegistry,
			Tag:        awsTagReplacer.Replace(imageName),
		}
	}
	return TargetRef{
		Repository: destRegistry + "/" + imageName,
		Tag:        "latest",
	}
}
