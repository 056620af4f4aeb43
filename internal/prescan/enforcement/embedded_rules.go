// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
This file bridges the build system and the runtime logic. It uses the Go
embed package to bake rules.yaml directly into the compiled binary, so the
prescan rule catalog is immutable at runtime and travels with the executable.
*/

package enforcement

import (
	_ "embed"
)

// RuleCatalog holds the raw byte content of rules.yaml.
//
// Populated at compile time via the Go 'embed' directive. Baking the YAML
// into the binary guarantees every deployment scans with the same law and
// domain catalog; changing the rules means recompiling, which is exactly the
// audit property the pipeline wants.
//
// Usage:
//
//	err := yaml.Unmarshal(enforcement.RuleCatalog, &targetStruct)
//
//go:embed rules.yaml
var RuleCatalog []byte
