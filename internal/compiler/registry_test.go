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

import "testing"

func TestRegistryHasBuiltinLanguages(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"assemblyscript", "tinygo", "zig"} {
		if _, ok := r.Lookup(name); !ok {
			t.Fatalf("expected builtin language %q to be registered", name)
		}
	}
	if _, ok := r.Lookup("cobol"); ok {
		t.Fatalf("did not expect cobol to be registered")
	}
}

func TestRegistrySetAndRemove(t *testing.T) {
	r := NewRegistry()
	if err := r.Set(LanguageDescriptor{Name: "rust", InputFile: "main.rs", OutputFile: "out.wasm", Executable: "rustc"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := r.Lookup("rust"); !ok {
		t.Fatalf("expected rust to be registered after Set")
	}
	if !r.Remove("rust") {
		t.Fatalf("expected Remove to report removal")
	}
	if r.Remove("rust") {
		t.Fatalf("expected second Remove to report no removal")
	}
}

func TestRegistrySetRejectsIncompleteDescriptor(t *testing.T) {
	r := NewRegistry()
	if err := r.Set(LanguageDescriptor{Name: "broken"}); err == nil {
		t.Fatalf("expected error for incomplete descriptor")
	}
	if err := r.Set(LanguageDescriptor{InputFile: "x", OutputFile: "y", Executable: "z"}); err == nil {
		t.Fatalf("expected error for missing name")
	}
}
