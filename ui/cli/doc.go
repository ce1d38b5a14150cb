// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the command-line interface for nod32tools using Cobra.
// It loads the settings, sets up logging and translations, and provides
// commands that delegate to the internal packages. CLI code should remain thin
// and keep business logic in keyimport, keystore, mirrorconf and langpack.
package cli
