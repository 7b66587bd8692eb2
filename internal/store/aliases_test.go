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
	"testing"
)

func TestSetAliasRejectsMissingBlob(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SetAlias("foo", "0000000000000000000000000000000000000000000000000000000000000000")
	if !errors.Is(err, ErrAliasTargetMissing) {
		t.Fatalf("expected ErrAliasTargetMissing, got %v", err)
	}
	if _, err := s.GetAlias("foo"); !errors.Is(err, ErrAliasNotFound) {
		t.Fatalf("expected no alias to have been created, got %v", err)
	}
}

func TestAliasLifecycle(t *testing.T) {
	s := newTestStore(t)
	hash1, err := s.PutBlob([]byte("v1"))
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	hash2, err := s.PutBlob([]byte("v2"))
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}

	a1, err := s.SetAlias("foo", hash1)
	if err != nil {
		t.Fatalf("SetAlias: %v", err)
	}
	if !a1.CreatedAt.Equal(a1.UpdatedAt) {
		t.Fatalf("expected created_at == updated_at on first write, got %v vs %v", a1.CreatedAt, a1.UpdatedAt)
	}

	a2, err := s.SetAlias("foo", hash2)
	if err != nil {
		t.Fatalf("SetAlias: %v", err)
	}
	if !a2.CreatedAt.Equal(a1.CreatedAt) {
		t.Fatalf("created_at should be preserved across updates: %v vs %v", a2.CreatedAt, a1.CreatedAt)
	}
	if !a2.UpdatedAt.After(a1.UpdatedAt) && !a2.UpdatedAt.Equal(a1.UpdatedAt) {
		t.Fatalf("updated_at should not move backwards: %v vs %v", a2.UpdatedAt, a1.UpdatedAt)
	}
	if a2.Hash != hash2 {
		t.Fatalf("alias should now point at hash2, got %s", a2.Hash)
	}

	names, err := s.AliasesForHash(hash1)
	if err != nil {
		t.Fatalf("AliasesForHash: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("hash1 should no longer have any aliases pointing at it, got %v", names)
	}

	removed, err := s.DeleteAlias("foo")
	if err != nil {
		t.Fatalf("DeleteAlias: %v", err)
	}
	if !removed {
		t.Fatalf("expected DeleteAlias to report removal")
	}

	if _, err := s.GetAlias("foo"); !errors.Is(err, ErrAliasNotFound) {
		t.Fatalf("expected ErrAliasNotFound after delete, got %v", err)
	}

	removed, err = s.DeleteAlias("foo")
	if err != nil {
		t.Fatalf("DeleteAlias on already-deleted alias: %v", err)
	}
	if removed {
		t.Fatalf("expected second delete to report no removal")
	}
}

func TestListAliasesOrderedByName(t *testing.T) {
	s := newTestStore(t)
	hash, err := s.PutBlob([]byte("v"))
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}

	for _, name := range []string{"zebra", "alpha", "mid"} {
		if _, err := s.SetAlias(name, hash); err != nil {
			t.Fatalf("SetAlias(%s): %v", name, err)
		}
	}

	aliases, err := s.ListAliases()
	if err != nil {
		t.Fatalf("ListAliases: %v", err)
	}
	if len(aliases) != 3 {
		t.Fatalf("expected 3 aliases, got %d", len(aliases))
	}
	want := []string{"alpha", "mid", "zebra"}
	for i, a := range aliases {
		if a.Name != want[i] {
			t.Fatalf("aliases not sorted: got %v", aliasNames(aliases))
		}
	}
}

func aliasNames(aliases []*Alias) []string {
	names := make([]string, len(aliases))
	for i, a := range aliases {
		names[i] = a.Name
	}
	return names
}
