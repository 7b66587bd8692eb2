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
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/unbiasedzucchini/wasmforge/internal/store"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
	st, err := store.OpenInMemory(logger)
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	registry := NewRegistry()

	var echoDescriptor LanguageDescriptor
	if runtime.GOOS == "windows" {
		echoDescriptor = LanguageDescriptor{
			Name:       "echo-test",
			InputFile:  "input.txt",
			OutputFile: "output.wasm",
			Executable: "cmd",
			Args:       []string{"/C", "copy", "input.txt", "output.wasm"},
		}
	} else {
		echoDescriptor = LanguageDescriptor{
			Name:       "echo-test",
			InputFile:  "input.txt",
			OutputFile: "output.wasm",
			Executable: "cp",
			Args:       []string{"input.txt", "output.wasm"},
		}
	}
	echoDescriptor.RequiresCwd = true
	if err := registry.Set(echoDescriptor); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := registry.Set(LanguageDescriptor{
		Name:        "fail-test",
		InputFile:   "input.txt",
		OutputFile:  "output.wasm",
		Executable:  "false",
		RequiresCwd: true,
	}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	scratchRoot := filepath.Join(t.TempDir(), "scratch")
	p, err := NewPipeline(registry, st, scratchRoot, logger)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func TestCompileUnknownLanguage(t *testing.T) {
	p := newTestPipeline(t)
	_, err := p.Compile(context.Background(), "cobol", []byte("IDENTIFICATION DIVISION."))
	if err == nil {
		t.Fatalf("expected error for unknown language")
	}
	failure, ok := err.(*CompileFailure)
	if !ok || failure.Reason != "unknown-language" {
		t.Fatalf("expected unknown-language CompileFailure, got %v", err)
	}
}

func TestCompileEmptySourceRejectedWithNoEvent(t *testing.T) {
	p := newTestPipeline(t)
	_, err := p.Compile(context.Background(), "echo-test", nil)
	if err == nil {
		t.Fatalf("expected error for empty source")
	}
	failure, ok := err.(*CompileFailure)
	if !ok || failure.Reason != "empty-source" {
		t.Fatalf("expected empty-source CompileFailure, got %v", err)
	}

	events, err := p.Store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no event recorded for empty source, got %+v", events)
	}
}

func TestCompileSuccessCopiesOutputAndRecordsEvent(t *testing.T) {
	if _, err := os.Stat("/bin/cp"); err != nil && runtime.GOOS != "windows" {
		t.Skip("cp not available on this system")
	}
	p := newTestPipeline(t)
	source := []byte("source bytes")

	result, err := p.Compile(context.Background(), "echo-test", source)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if string(result.Bytes) != string(source) {
		t.Fatalf("expected echoed output to match source, got %q", result.Bytes)
	}
	if result.InputHash == "" || result.OutputHash == "" {
		t.Fatalf("expected hashes to be populated")
	}

	events, err := p.Store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 1 || events[0].Type != store.EventCompile || !events[0].Success {
		t.Fatalf("expected one successful compile event, got %+v", events)
	}
}

func TestCompileNonZeroExitRecordsFailureEvent(t *testing.T) {
	if _, err := os.Stat("/bin/false"); err != nil && runtime.GOOS != "windows" {
		t.Skip("false not available on this system")
	}
	p := newTestPipeline(t)

	_, err := p.Compile(context.Background(), "fail-test", []byte("whatever"))
	if err == nil {
		t.Fatalf("expected error from nonzero exit")
	}
	failure, ok := err.(*CompileFailure)
	if !ok || failure.Reason != "nonzero-exit" {
		t.Fatalf("expected nonzero-exit CompileFailure, got %v", err)
	}

	events, err := p.Store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 1 || events[0].Success {
		t.Fatalf("expected one failed compile event, got %+v", events)
	}
}
