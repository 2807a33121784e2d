// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package catalog provides the component registry and dependency validator.
//
// The catalog is populated once at startup from the embedded TOML payload or
// a user supplied TOML/YAML file, and is immutable afterwards.
//
// # Key Types
//
//   - Artifact: closed variant over Executable, Library and Data
//   - Component: fields shared by every artifact
//   - Catalog: name-keyed registry with dependency queries
//   - Validation: result of checking a selection against the required set
//
// # Usage
//
//	cat, err := catalog.Default()
//	if err != nil {
//		return err
//	}
//	selection, _ := cat.Resolve([]string{"core-psx.dll"})
//	if v := cat.Validate(selection); !v.IsValid {
//		fmt.Println("missing:", v.Missing)
//	}
package catalog
