// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package runtime

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

// constZeroModule is a hand-assembled minimal wasm binary: one memory
// (min 1 page) exported as "memory", and one function exported as
// "run" with signature (i32,i32,i32)->i32 whose body is a single
// `i32.const 0` — it ignores its arguments and always reports a
// zero-length output.
var constZeroModule = []byte{
	0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00, // magic + version
	0x01, 0x08, 0x01, 0x60, 0x03, 0x7F, 0x7F, 0x7F, 0x01, 0x7F, // type section
	0x03, 0x02, 0x01, 0x00, // function section
	0x05, 0x03, 0x01, 0x00, 0x01, // memory section
	0x07, 0x10, 0x02, 0x06, 0x6D, 0x65, 0x6D, 0x6F, 0x72, 0x79, 0x02, 0x00,
	0x03, 0x72, 0x75, 0x6E, 0x00, 0x00, // export section: memory, run
	0x0A, 0x06, 0x01, 0x04, 0x00, 0x41, 0x00, 0x0B, // code section: i32.const 0; end
}

// noExportsModule is a minimal but otherwise empty valid wasm binary:
// no memory, no functions, no exports.
var noExportsModule = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

func newTestHarness(t *testing.T) *Harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := context.Background()
	h := NewHarness(ctx, logger)
	t.Cleanup(func() { _ = h.Close(ctx) })
	return h
}

func TestExecuteConstZero(t *testing.T) {
	h := newTestHarness(t)
	out, err := h.Execute(context.Background(), "const-zero", constZeroModule, []byte("hello"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected zero-length output, got %d bytes", len(out))
	}
}

func TestExecuteCachesCompiledModule(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	if _, err := h.Execute(ctx, "const-zero", constZeroModule, nil); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if _, ok := h.cache.Load("const-zero"); !ok {
		t.Fatalf("expected compiled module to be cached by hash")
	}
	// Second call must reuse the cached compiled module without error.
	if _, err := h.Execute(ctx, "const-zero", constZeroModule, nil); err != nil {
		t.Fatalf("second Execute: %v", err)
	}
}

func TestExecuteMissingExports(t *testing.T) {
	h := newTestHarness(t)
	_, err := h.Execute(context.Background(), "no-exports", noExportsModule, nil)
	if err == nil {
		t.Fatalf("expected error for module missing exports")
	}
	failure, ok := err.(*ExecutionFailure)
	if !ok || failure.Reason != "missing-export" {
		t.Fatalf("expected missing-export ExecutionFailure, got %v", err)
	}
}
