// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unbiasedzucchini/wasmforge/internal/store"
)

const timeFormat = "2006-01-02T15:04:05.000"

func toAliasResponse(a *store.Alias) AliasResponse {
	return AliasResponse{
		Name:      a.Name,
		Hash:      a.Hash,
		CreatedAt: a.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt: a.UpdatedAt.UTC().Format(timeFormat),
	}
}

// HandleListAliases implements GET /aliases.
func (h *Handlers) HandleListAliases(c *gin.Context) {
	aliases, err := h.Service.ListAliases()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL"})
		return
	}
	out := make([]AliasResponse, len(aliases))
	for i, a := range aliases {
		out[i] = toAliasResponse(a)
	}
	c.JSON(http.StatusOK, out)
}

// HandleGetAlias implements GET /alias/:name.
func (h *Handlers) HandleGetAlias(c *gin.Context) {
	name := c.Param("name")
	alias, err := h.Service.GetAlias(name)
	if err != nil {
		if errors.Is(err, store.ErrAliasNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "alias not found: " + name, Code: "ALIAS_NOT_FOUND"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL"})
		return
	}
	c.JSON(http.StatusOK, toAliasResponse(alias))
}

// HandlePutAlias implements PUT /alias/:name.
func (h *Handlers) HandlePutAlias(c *gin.Context) {
	name := c.Param("name")
	var req AliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "BAD_BODY"})
		return
	}

	alias, err := h.Service.SetAlias(name, req.Hash)
	if err != nil {
		if errors.Is(err, store.ErrAliasTargetMissing) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "target blob does not exist: " + req.Hash, Code: "TARGET_MISSING"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL"})
		return
	}
	c.JSON(http.StatusOK, toAliasResponse(alias))
}

// HandleDeleteAlias implements DELETE /alias/:name.
func (h *Handlers) HandleDeleteAlias(c *gin.Context) {
	name := c.Param("name")
	removed, err := h.Service.DeleteAlias(name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "alias not found: " + name, Code: "ALIAS_NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
