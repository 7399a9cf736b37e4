// Package configs provides embedded configuration templates for coderag.
//
// How Configuration Templates Work:
//
// Templates are embedded at build time using Go's //go:embed directive.
// This ensures they are available in ALL distributions:
//   - Source builds (go install)
//   - Binary releases
//
// The templates are used by:
//   - cmd/amanmcp/cmd/init.go (coderag init) - creates .coderag.yaml
//   - cmd/amanmcp/cmd/config.go (coderag config init) - creates user config at ~/.config/coderag/config.yaml
//
// Template files:
//   - project-config.example.yaml: Project-specific settings (store URL, search weights)
//   - user-config.example.yaml: Machine-specific settings (LLM credentials, logging, compaction)
//
// Configuration Hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/coderag/config.yaml)
//  3. Project config (.coderag.yaml)
//  4. Environment variables (unprefixed for §6.3 keys, CODERAG_* for §10.3 keys)
//
// To modify templates, edit the .yaml files in this directory and rebuild.
// Changes will be embedded in the next build.
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration.
// Created by: `coderag config init` at ~/.config/coderag/config.yaml
// Contains: Machine-specific settings like LLM API credentials, logging, compaction cadence.
// Use case: Settings that apply to all projects on this machine.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for project-level configuration.
// Created by: `coderag init` at .coderag.yaml in the project root.
// Contains: Project-specific settings like store_url, default_project, search weights.
// Use case: Settings that are version-controlled with the project.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
