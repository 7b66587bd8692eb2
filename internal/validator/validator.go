// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validator implements the fixed wasm ABI contract check: a
// module must export a memory named "memory" and a function named
// "run" with signature (i32, i32, i32) -> (i32).
package validator

import (
	"fmt"
	"strings"
)

// ExportInfo describes one export as reported in Result.Info.Exports.
type ExportInfo struct {
	Kind  string `json:"kind"`
	Index uint32 `json:"index"`
}

// Info carries supplementary detail alongside the pass/fail verdict.
type Info struct {
	Exports      map[string]ExportInfo `json:"exports"`
	RunSignature string                `json:"runSignature,omitempty"`
}

// Result is the outcome of validating a wasm binary against the
// contract. Valid is true iff Errors is empty.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Info     Info     `json:"info"`
}

const (
	exportMemory      = "memory"
	exportRun         = "run"
	exportInitializer = "_initialize"
)

var runParams = []byte{0x7F, 0x7F, 0x7F} // i32, i32, i32
var runResults = []byte{0x7F}            // i32

// Validate parses raw wasm module bytes and checks them against the
// contract. It never returns a Go error: malformed input is reported
// inside the Result as {valid:false, errors:["Invalid wasm binary: ..."]}.
func Validate(data []byte) (result Result) {
	result.Errors = []string{}
	result.Warnings = []string{}
	result.Info.Exports = map[string]ExportInfo{}

	defer func() {
		if r := recover(); r != nil {
			result = Result{
				Valid:    false,
				Errors:   []string{fmt.Sprintf("Invalid wasm binary: %v", r)},
				Warnings: []string{},
				Info:     Info{Exports: map[string]ExportInfo{}},
			}
		}
	}()

	m := parseModule(data)

	for _, e := range m.exports {
		result.Info.Exports[e.name] = ExportInfo{Kind: externKindName(e.kind), Index: e.index}
	}

	memExport, hasMemory := findExport(m.exports, exportMemory, externKindMemory)
	if !hasMemory {
		result.Errors = append(result.Errors, "Missing export: memory (kind: memory)")
	}
	_ = memExport

	runExport, hasRun := findExport(m.exports, exportRun, externKindFunc)
	if !hasRun {
		result.Errors = append(result.Errors, "Missing export: run (kind: function)")
	} else {
		if sig, ok := resolveRunSignature(m, runExport); ok {
			result.Info.RunSignature = sig.String()
			if !sig.matches(runParams, runResults) {
				result.Errors = append(result.Errors, fmt.Sprintf(
					"Wrong signature for run: got %s, expected (i32, i32, i32) -> (i32)", sig.String()))
			}
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"Cannot resolve signature for run: export index %d does not map to a locally defined function", runExport.index))
		}
	}

	for _, e := range m.exports {
		if e.name != exportMemory && e.name != exportRun && e.name != exportInitializer {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Extra export: %s", e.name))
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func findExport(exports []exportEntry, name string, kind byte) (exportEntry, bool) {
	for _, e := range exports {
		if e.name == name && e.kind == kind {
			return e, true
		}
	}
	return exportEntry{}, false
}

type signature struct {
	params  []byte
	results []byte
}

func (s signature) matches(params, results []byte) bool {
	return equalBytes(s.params, params) && equalBytes(s.results, results)
}

func (s signature) String() string {
	return fmt.Sprintf("(%s) -> (%s)", formatValueTypes(s.params), formatValueTypes(s.results))
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// resolveRunSignature maps run's exported function index to its type
// by subtracting the module's imported-function count (locally
// defined functions are indexed after all imported functions) and
// looking the result up in the Function then Type sections.
func resolveRunSignature(m *module, run exportEntry) (signature, bool) {
	if run.index < m.funcImports {
		return signature{}, false
	}
	localIdx := run.index - m.funcImports
	if int(localIdx) >= len(m.funcTypeIdx) {
		return signature{}, false
	}
	typeIdx := m.funcTypeIdx[localIdx]
	if int(typeIdx) >= len(m.types) {
		return signature{}, false
	}
	t := m.types[typeIdx]
	return signature{params: t.params, results: t.results}, true
}

func formatValueTypes(types []byte) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = formatValueType(t)
	}
	return strings.Join(names, ", ")
}

func formatValueType(t byte) string {
	switch t {
	case 0x7F:
		return "i32"
	case 0x7E:
		return "i64"
	case 0x7D:
		return "f32"
	case 0x7C:
		return "f64"
	default:
		return fmt.Sprintf("0x%02x", t)
	}
}

func externKindName(kind byte) string {
	switch kind {
	case externKindFunc:
		return "function"
	case externKindTable:
		return "table"
	case externKindMemory:
		return "memory"
	case externKindGlobal:
		return "global"
	default:
		return "unknown"
	}
}
