// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validator

import (
	"regexp"
	"testing"
)

func TestValidateConformantModule(t *testing.T) {
	b := &moduleBuilder{}
	runType := b.addType([]byte{0x7F, 0x7F, 0x7F}, []byte{0x7F})
	runIdx := b.addLocalFunc(runType)
	b.addExport("memory", externKindMemory, 0)
	b.addExport("run", externKindFunc, runIdx)

	result := Validate(b.build())
	if !result.Valid {
		t.Fatalf("expected valid module, got errors: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings, got: %v", result.Warnings)
	}
	if result.Info.RunSignature != "(i32, i32, i32) -> (i32)" {
		t.Fatalf("unexpected run signature: %q", result.Info.RunSignature)
	}
}

func TestValidateWrongSignature(t *testing.T) {
	b := &moduleBuilder{}
	runType := b.addType(nil, nil)
	runIdx := b.addLocalFunc(runType)
	b.addExport("memory", externKindMemory, 0)
	b.addExport("run", externKindFunc, runIdx)

	result := Validate(b.build())
	if result.Valid {
		t.Fatalf("expected invalid module")
	}
	want := regexp.MustCompile(`Wrong signature for run: got \(\) -> \(\), expected \(i32, i32, i32\) -> \(i32\)`)
	if !anyMatch(result.Errors, want) {
		t.Fatalf("expected wrong-signature error, got: %v", result.Errors)
	}
}

func TestValidateMissingMemory(t *testing.T) {
	b := &moduleBuilder{}
	runType := b.addType([]byte{0x7F, 0x7F, 0x7F}, []byte{0x7F})
	runIdx := b.addLocalFunc(runType)
	b.addExport("run", externKindFunc, runIdx)

	result := Validate(b.build())
	if result.Valid {
		t.Fatalf("expected invalid module")
	}
	if !contains(result.Errors, "Missing export: memory (kind: memory)") {
		t.Fatalf("expected missing-memory error, got: %v", result.Errors)
	}
}

func TestValidateMissingRun(t *testing.T) {
	b := &moduleBuilder{}
	b.addExport("memory", externKindMemory, 0)

	result := Validate(b.build())
	if result.Valid {
		t.Fatalf("expected invalid module")
	}
	if !contains(result.Errors, "Missing export: run (kind: function)") {
		t.Fatalf("expected missing-run error, got: %v", result.Errors)
	}
}

func TestValidateExtraExportWarning(t *testing.T) {
	b := &moduleBuilder{}
	runType := b.addType([]byte{0x7F, 0x7F, 0x7F}, []byte{0x7F})
	runIdx := b.addLocalFunc(runType)
	b.addExport("memory", externKindMemory, 0)
	b.addExport("run", externKindFunc, runIdx)
	b.addExport("_initialize", externKindFunc, runIdx)
	b.addExport("helper", externKindFunc, runIdx)

	result := Validate(b.build())
	if !result.Valid {
		t.Fatalf("expected valid module despite extra export, got errors: %v", result.Errors)
	}
	if !contains(result.Warnings, "Extra export: helper") {
		t.Fatalf("expected extra-export warning, got: %v", result.Warnings)
	}
	for _, w := range result.Warnings {
		if w == "Extra export: _initialize" {
			t.Fatalf("_initialize must not trigger an extra-export warning")
		}
	}
}

func TestValidateFuncImportsOffsetExportIndex(t *testing.T) {
	b := &moduleBuilder{}
	b.addFuncImport() // shifts local function indices by one
	runType := b.addType([]byte{0x7F, 0x7F, 0x7F}, []byte{0x7F})
	runIdx := b.addLocalFunc(runType)
	b.addExport("memory", externKindMemory, 0)
	b.addExport("run", externKindFunc, runIdx)

	result := Validate(b.build())
	if !result.Valid {
		t.Fatalf("expected valid module accounting for imported functions, got errors: %v", result.Errors)
	}
}

func TestValidateInvalidBinaryRecoversFromPanic(t *testing.T) {
	result := Validate([]byte{0x00, 0x01, 0x02})
	if result.Valid {
		t.Fatalf("expected invalid result for garbage input")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected exactly one error, got: %v", result.Errors)
	}
	want := regexp.MustCompile(`^Invalid wasm binary: `)
	if !want.MatchString(result.Errors[0]) {
		t.Fatalf("expected error prefixed with 'Invalid wasm binary: ', got: %q", result.Errors[0])
	}
}

func anyMatch(values []string, re *regexp.Regexp) bool {
	for _, v := range values {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
