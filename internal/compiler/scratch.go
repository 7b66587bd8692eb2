// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package compiler

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// newScratchDir allocates a fresh, unguessably-named directory under
// root and returns its path plus a cleanup func that removes it.
// cleanup is safe to call multiple times and never returns an error —
// removal failures are swallowed inside cleanup itself, per the scoped-
// acquisition discipline the pipeline relies on.
func newScratchDir(root string) (dir string, cleanup func(), err error) {
	token, err := randomToken()
	if err != nil {
		return "", nil, fmt.Errorf("generating scratch token: %w", err)
	}
	dir = filepath.Join(root, "wasmforge-"+token)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", nil, fmt.Errorf("creating scratch dir: %w", err)
	}
	cleanup = func() { _ = os.RemoveAll(dir) }
	return dir, cleanup, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
