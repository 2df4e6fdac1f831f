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

package chat

import (
	"cmp"
	"slices"
	"strings"
)

// Scenario is a named chat preset with its own system prompt and model defaults.
type Scenario struct {
	Name            string  `json:"name"`
	SystemPrompt    string  `json:"systemPrompt"`
	DefaultProvider string  `json:"defaultProvider"`
	DefaultModel    string  `json:"defaultModel"`
	Temperature     float64 `json:"temperature"`
}

// DefaultScenarios returns the built-in presets.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			Name:            "analysis",
			SystemPrompt:    "You are a detailed analytical assistant. Provide in-depth, structured insights.",
			DefaultProvider: "gemini",
			DefaultModel:    "gemini-pro",
			Temperature:     DefaultTemperature,
		},
		{
			Name:            "coding",
			SystemPrompt:    "You are an expert programming assistant. Provide clear, concise code solutions.",
			DefaultProvider: "gemini",
			DefaultModel:    "gemini-pro",
			Temperature:     DefaultTemperature,
		},
		{
			Name:            "writing",
			SystemPrompt:    "You are a professional writing assistant. Help create high-quality, coherent text.",
			DefaultProvider: "gemini",
			DefaultModel:    "gemini-pro",
			Temperature:     DefaultTemperature,
		},
	}
}

// apply fills the unset fields of req from the scenario. The scenario's model
// only applies when the request keeps the scenario's provider.
func (s Scenario) apply(req Request) Request {
	if req.SystemPrompt == "" {
		req.SystemPrompt = s.SystemPrompt
	}
	if req.Provider == "" {
		req.Provider = s.DefaultProvider
	}
	if req.Model == "" && strings.EqualFold(req.Provider, s.DefaultProvider) {
		req.Model = s.DefaultModel
	}
	if req.Temperature == nil {
		t := s.Temperature
		req.Temperature = &t
	}
	return req
}

func sortedScenarios(m map[string]Scenario) []Scenario {
	out := make([]Scenario, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Scenario) int { return cmp.Compare(a.Name, b.Name) })
	return out
}
