// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package core orchestrates the blob store, compile pipeline, and
// execution harness into the service's two exposed operations: compile
// and execute. It owns the event-recording sequencing that no single
// lower-level package has enough context to get right on its own —
// in particular, emitting a resolve event before an execute event when
// a ref was dereferenced through an alias.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/unbiasedzucchini/wasmforge/internal/compiler"
	"github.com/unbiasedzucchini/wasmforge/internal/obs"
	"github.com/unbiasedzucchini/wasmforge/internal/runtime"
	"github.com/unbiasedzucchini/wasmforge/internal/store"
	"github.com/unbiasedzucchini/wasmforge/internal/validator"
)

// Service wires the store, compile pipeline, and execution harness
// into the operations the HTTP and CLI surfaces call.
type Service struct {
	Store    *store.Store
	Pipeline *compiler.Pipeline
	Harness  *runtime.Harness
	Logger   *slog.Logger
}

// NewService constructs a Service from its already-initialized
// dependencies.
func NewService(st *store.Store, pipeline *compiler.Pipeline, harness *runtime.Harness, logger *slog.Logger) *Service {
	return &Service{Store: st, Pipeline: pipeline, Harness: harness, Logger: logger}
}

// Compile runs the compile pipeline for (language, source) and records
// observability metrics around the pipeline's own event recording.
func (s *Service) Compile(ctx context.Context, language string, source []byte) (*compiler.CompileResult, error) {
	ctx, span := obs.Tracer().Start(ctx, "core.Service.Compile",
		trace.WithAttributes(
			attribute.String("language", language),
			attribute.Int("source_bytes", len(source)),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := s.Pipeline.Compile(ctx, language, source)
	obs.ObserveCompile(language, err == nil, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !result.Validation.Valid {
		obs.ContractViolationsTotal.WithLabelValues(language).Inc()
		span.SetStatus(codes.Error, "compiled module failed contract validation")
	}
	return result, nil
}

// ValidateBytes runs the contract validator directly over raw module
// bytes, bypassing the compile pipeline. Used by the standalone
// /validate surface.
func (s *Service) ValidateBytes(ctx context.Context, data []byte) validator.Result {
	_, span := obs.Tracer().Start(ctx, "core.Service.ValidateBytes",
		trace.WithAttributes(attribute.Int("module_bytes", len(data))),
	)
	defer span.End()

	result := validator.Validate(data)
	if !result.Valid {
		span.SetStatus(codes.Error, "module failed contract validation")
	}
	return result
}

// ExecuteResult is the outcome of a successful Execute call.
type ExecuteResult struct {
	Output      []byte
	ModuleHash  string
	InputHash   string
	OutputHash  string
	ResolvedVia string // alias name, if the ref was resolved through one
}

// Execute resolves ref to a module, runs it against input through the
// wasm harness, and records the resulting event(s). When ref resolves
// through an alias, a resolve event is committed before the execute
// event, and its id is guaranteed lower by the store's own sequence
// allocation order.
func (s *Service) Execute(ctx context.Context, ref string, input []byte) (*ExecuteResult, error) {
	ctx, span := obs.Tracer().Start(ctx, "core.Service.Execute",
		trace.WithAttributes(
			attribute.String("ref", ref),
			attribute.Int("input_bytes", len(input)),
		),
	)
	defer span.End()

	resolved, err := s.ResolveRef(ref)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("resolving ref %s: %w", ref, err)
	}
	span.SetAttributes(attribute.String("module_hash", resolved.Hash))

	moduleBytes, err := s.Store.GetBlob(resolved.Hash)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("loading module blob %s: %w", resolved.Hash, err)
	}

	inputHash, err := s.Store.PutBlob(input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("storing input blob: %w", err)
	}

	start := time.Now()
	output, execErr := s.Harness.Execute(ctx, resolved.Hash, moduleBytes, input)
	duration := time.Since(start)
	durationMs := duration.Milliseconds()

	if execErr != nil {
		obs.ObserveExecute(false, duration)
		span.RecordError(execErr)
		span.SetStatus(codes.Error, execErr.Error())
		if _, err := s.Store.RecordEvent(&store.Event{
			Type:       store.EventExecute,
			ModuleHash: resolved.Hash,
			InputHash:  inputHash,
			Success:    false,
			Error:      execErr.Error(),
			DurationMs: &durationMs,
		}); err != nil {
			s.Logger.Error("failed to record execute event", "error", err)
		}
		return nil, execErr
	}

	obs.ObserveExecute(true, duration)
	outputHash, err := s.Store.PutBlob(output)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("storing output blob: %w", err)
	}
	span.SetAttributes(attribute.Int("output_bytes", len(output)))

	outputSize := int64(len(output))
	if _, err := s.Store.RecordEvent(&store.Event{
		Type:       store.EventExecute,
		ModuleHash: resolved.Hash,
		InputHash:  inputHash,
		OutputHash: outputHash,
		OutputSize: &outputSize,
		Success:    true,
		DurationMs: &durationMs,
	}); err != nil {
		s.Logger.Error("failed to record execute event", "error", err)
	}

	return &ExecuteResult{
		Output:      output,
		ModuleHash:  resolved.Hash,
		InputHash:   inputHash,
		OutputHash:  outputHash,
		ResolvedVia: resolved.Alias,
	}, nil
}

// SetAlias upserts an alias, recording a failed alias event and
// returning the store's sentinel error when the target blob is
// missing. Per the error taxonomy, alias-mutation failures are the one
// client-invalid case that still gets an event recorded.
func (s *Service) SetAlias(name, hash string) (*store.Alias, error) {
	alias, err := s.Store.SetAlias(name, hash)
	if err != nil {
		if _, recErr := s.Store.RecordEvent(&store.Event{
			Type:    store.EventAlias,
			Alias:   name,
			Success: false,
			Error:   err.Error(),
		}); recErr != nil {
			s.Logger.Error("failed to record alias failure event", "error", recErr)
		}
		return nil, err
	}

	if _, err := s.Store.RecordEvent(&store.Event{
		Type:       store.EventAlias,
		Alias:      name,
		OutputHash: alias.Hash,
		Success:    true,
	}); err != nil {
		s.Logger.Error("failed to record alias event", "error", err)
	}
	return alias, nil
}

// ResolveRef resolves ref to a blob hash, recording a resolve event
// whenever ref was dereferenced through an alias. Every HTTP surface
// that accepts a ref (not just Execute) should call this rather than
// Store.ResolveRef directly, so the resolve event is recorded
// uniformly regardless of which endpoint triggered the lookup.
func (s *Service) ResolveRef(ref string) (*store.ResolvedRef, error) {
	resolved, err := s.Store.ResolveRef(ref)
	if err != nil {
		return nil, err
	}
	if resolved.Alias != "" {
		if _, err := s.Store.RecordEvent(&store.Event{
			Type:       store.EventResolve,
			Alias:      resolved.Alias,
			OutputHash: resolved.Hash,
			Success:    true,
		}); err != nil {
			s.Logger.Error("failed to record resolve event", "error", err, "alias", resolved.Alias)
		}
	}
	return resolved, nil
}

// GetAlias, DeleteAlias, ListAliases, and the blob/event accessors
// below pass straight through to the store; they carry no additional
// orchestration logic of their own.

func (s *Service) GetAlias(name string) (*store.Alias, error) { return s.Store.GetAlias(name) }

func (s *Service) DeleteAlias(name string) (bool, error) {
	removed, err := s.Store.DeleteAlias(name)
	if err != nil {
		return false, err
	}
	if removed {
		if _, err := s.Store.RecordEvent(&store.Event{
			Type:    store.EventAlias,
			Alias:   name,
			Success: true,
		}); err != nil {
			s.Logger.Error("failed to record alias deletion event", "error", err)
		}
	}
	return removed, nil
}

func (s *Service) ListAliases() ([]*store.Alias, error) { return s.Store.ListAliases() }

func (s *Service) GetBlob(hash string) ([]byte, error) { return s.Store.GetBlob(hash) }

func (s *Service) BlobMetadata(hash string) (*store.BlobMeta, error) { return s.Store.BlobMetadata(hash) }

func (s *Service) RecentEvents(limit int) ([]*store.Event, error) { return s.Store.Recent(limit) }

func (s *Service) Languages() []string { return s.Pipeline.Registry.Names() }
