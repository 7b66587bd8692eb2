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
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
)

// ExecutionFailure is a structured execution error surfaced to the
// client. Reason distinguishes the taxonomy the harness can produce.
type ExecutionFailure struct {
	Reason  string // "missing-export", "trap", "output-overflow", "memory-growth"
	Message string
}

func (f *ExecutionFailure) Error() string { return f.Message }

// Harness executes compiled wasm modules against the fixed ABI. Every
// invocation instantiates a fresh module instance; no state survives
// between calls. The underlying wazero runtime is configured with no
// host imports — the contract requires zero guest imports.
type Harness struct {
	runtime wazero.Runtime
	cache   sync.Map // module hash (string) -> wazero.CompiledModule
	logger  *slog.Logger
}

// NewHarness builds a Harness backed by a fresh wazero runtime.
func NewHarness(ctx context.Context, logger *slog.Logger) *Harness {
	return &Harness{
		runtime: wazero.NewRuntime(ctx),
		logger:  logger,
	}
}

// Close releases the underlying wazero runtime and all cached
// compiled modules.
func (h *Harness) Close(ctx context.Context) error {
	return h.runtime.Close(ctx)
}

func (h *Harness) compiled(ctx context.Context, moduleHash string, moduleBytes []byte) (wazero.CompiledModule, error) {
	if cm, ok := h.cache.Load(moduleHash); ok {
		return cm.(wazero.CompiledModule), nil
	}
	cm, err := h.runtime.CompileModule(ctx, moduleBytes)
	if err != nil {
		return nil, fmt.Errorf("compiling module for execution: %w", err)
	}
	actual, loaded := h.cache.LoadOrStore(moduleHash, cm)
	if loaded {
		// Another goroutine compiled the same module first; keep its
		// copy and let this one be garbage collected.
		_ = cm.Close(ctx)
		return actual.(wazero.CompiledModule), nil
	}
	return cm, nil
}

// Execute instantiates moduleBytes (cached by moduleHash), grows its
// memory to the contract minimum, copies input, runs any _initialize
// export, invokes run, and returns a fresh owned copy of the output.
func (h *Harness) Execute(ctx context.Context, moduleHash string, moduleBytes []byte, input []byte) ([]byte, error) {
	compiledModule, err := h.compiled(ctx, moduleHash, moduleBytes)
	if err != nil {
		return nil, err
	}

	config := wazero.NewModuleConfig().WithName(uuid.NewString())
	mod, err := h.runtime.InstantiateModule(ctx, compiledModule, config)
	if err != nil {
		return nil, &ExecutionFailure{Reason: "trap", Message: fmt.Sprintf("instantiating module: %v", err)}
	}
	defer mod.Close(ctx)

	memory := mod.Memory()
	if memory == nil {
		return nil, &ExecutionFailure{Reason: "missing-export", Message: "Module does not export 'memory'"}
	}

	run := mod.ExportedFunction("run")
	if run == nil {
		return nil, &ExecutionFailure{Reason: "missing-export", Message: "Module does not export 'run'"}
	}

	needed := requiredPages()
	currentPages := memory.Size() / wasmPageSize
	if currentPages < needed {
		if _, ok := memory.Grow(needed - currentPages); !ok {
			return nil, &ExecutionFailure{Reason: "memory-growth", Message: "failed to grow linear memory to contract minimum"}
		}
	}

	if len(input) > 0 {
		if !memory.Write(inputPtr, input) {
			return nil, &ExecutionFailure{Reason: "trap", Message: "failed to write input into linear memory"}
		}
	}

	if initializer := mod.ExportedFunction("_initialize"); initializer != nil {
		if _, err := initializer.Call(ctx); err != nil {
			return nil, &ExecutionFailure{Reason: "trap", Message: fmt.Sprintf("trap during _initialize: %v", err)}
		}
	}

	results, err := run.Call(ctx, uint64(inputPtr), uint64(len(input)), uint64(outputPtr))
	if err != nil {
		return nil, &ExecutionFailure{Reason: "trap", Message: fmt.Sprintf("trap during run: %v", err)}
	}
	if len(results) != 1 {
		return nil, &ExecutionFailure{Reason: "trap", Message: "run did not return exactly one result"}
	}

	n := uint32(results[0])
	if n > maxOutput {
		return nil, &ExecutionFailure{Reason: "output-overflow", Message: fmt.Sprintf("output length %d exceeds MAX_OUTPUT (%d)", n, maxOutput)}
	}

	output, ok := memory.Read(outputPtr, n)
	if !ok {
		return nil, &ExecutionFailure{Reason: "trap", Message: "failed to read output from linear memory"}
	}

	owned := make([]byte, len(output))
	copy(owned, output)
	return owned, nil
}
