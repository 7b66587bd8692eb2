// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package compiler drives the source-to-wasm compile pipeline: a
// static language registry, a scratch-directory lifecycle, and a
// bounded subprocess invocation.
package compiler

import (
	"fmt"
	"sync"
)

// LanguageDescriptor is a row in the language registry. Adding a
// language is adding a row, not writing new dispatch code.
type LanguageDescriptor struct {
	Name         string
	InputFile    string
	OutputFile   string
	Executable   string
	Args         []string // argv passed to Executable, in order
	RequiresCwd  bool      // whether the process must run with CWD = scratch dir
}

// Registry is a concurrency-safe, hot-reloadable lookup table of
// LanguageDescriptors. The zero value is not usable; use NewRegistry.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]LanguageDescriptor
}

// NewRegistry builds a registry seeded with the three built-in
// language descriptors. The executable paths are placeholders meant
// to be overridden by configuration (internal/config) at startup.
func NewRegistry() *Registry {
	r := &Registry{byKey: map[string]LanguageDescriptor{}}
	for _, d := range defaultDescriptors() {
		r.byKey[d.Name] = d
	}
	return r
}

func defaultDescriptors() []LanguageDescriptor {
	return []LanguageDescriptor{
		{
			Name:        "assemblyscript",
			InputFile:   "input.ts",
			OutputFile:  "output.wasm",
			Executable:  "asc",
			Args:        []string{"input.ts", "--outFile", "output.wasm", "--optimize"},
			RequiresCwd: true,
		},
		{
			Name:        "tinygo",
			InputFile:   "main.go",
			OutputFile:  "output.wasm",
			Executable:  "tinygo",
			Args:        []string{"build", "-o", "output.wasm", "-target=wasi", "main.go"},
			RequiresCwd: true,
		},
		{
			Name:        "zig",
			InputFile:   "input.zig",
			OutputFile:  "input.wasm",
			Executable:  "zig",
			Args:        []string{"build-exe", "input.zig", "-target", "wasm32-freestanding", "-fno-entry", "--export=run"},
			RequiresCwd: true,
		},
	}
}

// Lookup returns the descriptor for a language name, or false if the
// language is unknown.
func (r *Registry) Lookup(name string) (LanguageDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byKey[name]
	return d, ok
}

// Names returns the registered language names, in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byKey))
	for name := range r.byKey {
		names = append(names, name)
	}
	return names
}

// Set inserts or replaces a language descriptor. Used by the
// configuration loader on startup and on config hot-reload.
func (r *Registry) Set(d LanguageDescriptor) error {
	if d.Name == "" {
		return fmt.Errorf("language descriptor missing name")
	}
	if d.InputFile == "" || d.OutputFile == "" || d.Executable == "" {
		return fmt.Errorf("language %q missing required descriptor fields", d.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[d.Name] = d
	return nil
}

// Remove deletes a language from the registry. Reports whether an
// entry was present.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[name]; !ok {
		return false
	}
	delete(r.byKey, name)
	return true
}
