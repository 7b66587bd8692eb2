// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package httpapi exposes the core service over HTTP. This layer is
// ambient plumbing over internal/core — it owns no domain logic of its
// own beyond request decoding and response shaping.
package httpapi

import "github.com/unbiasedzucchini/wasmforge/internal/core"

// ErrorResponse is the JSON body returned for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// AliasRequest is the JSON body for PUT /alias/{name}.
type AliasRequest struct {
	Hash string `json:"hash" binding:"required"`
}

// AliasResponse is the JSON shape returned for alias reads and writes.
type AliasResponse struct {
	Name      string `json:"name"`
	Hash      string `json:"hash"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// StatsResponse summarizes service-level counters for GET /stats.
type StatsResponse struct {
	Languages   []string `json:"languages"`
	AliasCount  int      `json:"alias_count"`
	RecentCount int      `json:"recent_event_count"`
}

// Handlers bundles the orchestration Service with the Gin handler
// methods that adapt it to HTTP.
type Handlers struct {
	Service *core.Service
}

// NewHandlers constructs a Handlers bound to svc.
func NewHandlers(svc *core.Service) *Handlers {
	return &Handlers{Service: svc}
}
