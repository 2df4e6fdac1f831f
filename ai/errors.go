// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"errors"
	"fmt"

	"github.com/poiesic/pdfqa/core"
)

var (
	// ErrUnknownProvider indicates a provider key with no registered factory.
	ErrUnknownProvider = fmt.Errorf("%w: unknown provider", core.ErrValidation)

	// ErrCapabilityUnsupported indicates the provider cannot serve the requested capability.
	ErrCapabilityUnsupported = errors.New("capability not supported by provider")

	// ErrInvalidConfig indicates an incomplete or malformed provider configuration.
	ErrInvalidConfig = fmt.Errorf("%w: ai config", core.ErrConfig)

	// ErrEmbedderRequired indicates a nil Embedder was passed to a constructor.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrRegistryRequired indicates a nil Registry was passed to a constructor.
	ErrRegistryRequired = errors.New("provider registry is required")
)
