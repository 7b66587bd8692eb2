// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"errors"
	"fmt"
)

// ResolvedRef is the outcome of resolving a ref string to a blob hash.
// Alias is non-empty only when the ref resolved through an alias name.
type ResolvedRef struct {
	Hash  string
	Alias string
}

// ResolveRef implements the ref union: a ref is first tried as an alias
// name, and only falls back to being treated as a content hash if no
// alias by that name exists. This precedence is deliberate — a name
// that happens to collide with a valid hash string still resolves as
// the alias.
func (s *Store) ResolveRef(ref string) (*ResolvedRef, error) {
	if ref == "" {
		return nil, ErrEmptyName
	}

	alias, err := s.GetAlias(ref)
	switch {
	case err == nil:
		return &ResolvedRef{Hash: alias.Hash, Alias: alias.Name}, nil
	case errors.Is(err, ErrAliasNotFound):
		// fall through to hash lookup
	default:
		return nil, fmt.Errorf("resolving ref %s: %w", ref, err)
	}

	has, err := s.HasBlob(ref)
	if err != nil {
		return nil, fmt.Errorf("resolving ref %s: %w", ref, err)
	}
	if !has {
		return nil, ErrRefNotFound
	}
	return &ResolvedRef{Hash: ref}, nil
}
