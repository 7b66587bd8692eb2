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
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/unbiasedzucchini/wasmforge/internal/store"
	"github.com/unbiasedzucchini/wasmforge/internal/validator"
)

const (
	compileTimeout  = 30 * time.Second
	outputCaptureCap = 4 * 1024 * 1024 // 4 MiB, applies to stdout and stderr independently
)

// CompileFailure is a structured, user-facing compile error. It is not
// a Go error in the usual sense — Message() renders the text a client
// should see, per the stderr → stdout → OS-error fallback order.
type CompileFailure struct {
	Reason string // one of: "unknown-language", "empty-source", "timeout", "nonzero-exit", "missing-output"
	stderr string
	stdout string
	osErr  error
}

func (f *CompileFailure) Error() string { return f.Message() }

// Message renders the user-visible compiler error text.
func (f *CompileFailure) Message() string {
	switch {
	case f.stderr != "":
		return f.stderr
	case f.stdout != "":
		return f.stdout
	case f.osErr != nil:
		return f.osErr.Error()
	default:
		return f.Reason
	}
}

// CompileResult is returned on a successful compile. Validation is
// always populated (even for a non-conformant module) and never causes
// Compile itself to fail.
type CompileResult struct {
	Bytes      []byte
	InputHash  string
	OutputHash string
	Validation validator.Result
	DurationMs int64
}

// Pipeline wires the language registry, scratch-directory lifecycle,
// and subprocess invocation into the single `compile` operation.
type Pipeline struct {
	Registry    *Registry
	Store       *store.Store
	ScratchRoot string
	Logger      *slog.Logger
}

// NewPipeline constructs a Pipeline. scratchRoot is created if absent.
func NewPipeline(registry *Registry, st *store.Store, scratchRoot string, logger *slog.Logger) (*Pipeline, error) {
	if err := os.MkdirAll(scratchRoot, 0o700); err != nil {
		return nil, fmt.Errorf("preparing scratch root: %w", err)
	}
	return &Pipeline{Registry: registry, Store: st, ScratchRoot: scratchRoot, Logger: logger}, nil
}

// Compile runs the full compile algorithm for one (language, source)
// pair: store source, allocate scratch dir, invoke toolchain, read
// back output, validate, store, record event.
func (p *Pipeline) Compile(ctx context.Context, language string, source []byte) (*CompileResult, error) {
	descriptor, ok := p.Registry.Lookup(language)
	if !ok {
		return nil, &CompileFailure{Reason: "unknown-language", stdout: fmt.Sprintf("unknown language: %s", language)}
	}

	if len(source) == 0 {
		return nil, &CompileFailure{Reason: "empty-source", stdout: "source must not be empty"}
	}

	inputHash, err := p.Store.PutBlob(source)
	if err != nil {
		return nil, fmt.Errorf("storing source blob: %w", err)
	}

	start := time.Now()
	dir, cleanup, err := newScratchDir(p.ScratchRoot)
	if err != nil {
		return nil, fmt.Errorf("allocating scratch directory: %w", err)
	}
	defer cleanup()

	inputPath := filepath.Join(dir, descriptor.InputFile)
	if err := os.WriteFile(inputPath, source, 0o600); err != nil {
		return nil, fmt.Errorf("writing source to scratch dir: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, compileTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, descriptor.Executable, descriptor.Args...)
	if descriptor.RequiresCwd {
		cmd.Dir = dir
	}
	cmd.Env = os.Environ()

	var stdout, stderr boundedBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	durationMs := time.Since(start).Milliseconds()

	if runErr != nil {
		reason := "nonzero-exit"
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
			stderr.WriteString("\ncompile timed out after 30s")
		}
		failure := &CompileFailure{Reason: reason, stderr: stderr.String(), stdout: stdout.String(), osErr: runErr}
		p.recordCompileEvent(language, inputHash, "", 0, durationMs, false, failure.Message())
		return nil, failure
	}

	outputPath := filepath.Join(dir, descriptor.OutputFile)
	moduleBytes, err := os.ReadFile(outputPath)
	if err != nil {
		failure := &CompileFailure{Reason: "missing-output", osErr: err}
		p.recordCompileEvent(language, inputHash, "", 0, durationMs, false, failure.Message())
		return nil, failure
	}

	outputHash, err := p.Store.PutBlob(moduleBytes)
	if err != nil {
		return nil, fmt.Errorf("storing compiled module blob: %w", err)
	}

	validation := validator.Validate(moduleBytes)

	p.recordCompileEvent(language, inputHash, outputHash, int64(len(moduleBytes)), durationMs, true, "")

	return &CompileResult{
		Bytes:      moduleBytes,
		InputHash:  inputHash,
		OutputHash: outputHash,
		Validation: validation,
		DurationMs: durationMs,
	}, nil
}

func (p *Pipeline) recordCompileEvent(language, inputHash, outputHash string, outputSize, durationMs int64, success bool, errText string) {
	e := &store.Event{
		Type:       store.EventCompile,
		Language:   language,
		InputHash:  inputHash,
		Success:    success,
		DurationMs: &durationMs,
	}
	if outputHash != "" {
		e.OutputHash = outputHash
		e.OutputSize = &outputSize
	}
	if errText != "" {
		e.Error = errText
	}
	if _, err := p.Store.RecordEvent(e); err != nil {
		p.Logger.Error("failed to record compile event", "error", err, "language", language)
	}
}

// boundedBuffer caps writes at outputCaptureCap bytes; further writes
// are silently dropped (the returned byte count still claims success
// so io.Copy-style callers don't treat truncation as an I/O error).
type boundedBuffer struct {
	buf bytes.Buffer
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	remaining := outputCaptureCap - b.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *boundedBuffer) WriteString(s string) { b.buf.WriteString(s) }
func (b *boundedBuffer) String() string       { return b.buf.String() }
