// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads configuration for the riglink command-line tools.
//
// Configuration comes from a single YAML file named by the
// RIGLINK_CONFIG environment variable or a --config flag. There is no
// search path and no automatic discovery: a tool either runs on its
// built-in defaults or on exactly the file it was pointed at.
package config
