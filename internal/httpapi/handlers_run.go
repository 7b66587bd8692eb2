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
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unbiasedzucchini/wasmforge/internal/runtime"
	"github.com/unbiasedzucchini/wasmforge/internal/store"
)

// HandleRun implements POST /run/:ref. Input is taken from the request
// body unless ?input=<ref> names a stored blob to source it from
// instead.
func (h *Handlers) HandleRun(c *gin.Context) {
	ref := c.Param("ref")

	var input []byte
	if inputRef := c.Query("input"); inputRef != "" {
		resolved, err := h.Service.ResolveRef(inputRef)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "input ref not found: " + inputRef, Code: "INPUT_NOT_FOUND"})
			return
		}
		input, err = h.Service.GetBlob(resolved.Hash)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "input blob not found", Code: "INPUT_NOT_FOUND"})
			return
		}
	} else {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body", Code: "BAD_BODY"})
			return
		}
		input = body
	}

	result, err := h.Service.Execute(c.Request.Context(), ref, input)
	if err != nil {
		if errors.Is(err, store.ErrRefNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "ref not found: " + ref, Code: "REF_NOT_FOUND"})
			return
		}
		var execFailure *runtime.ExecutionFailure
		if errors.As(err, &execFailure) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: execFailure.Message, Code: "EXECUTION_FAILED"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL"})
		return
	}

	c.Header("X-Module-Hash", result.ModuleHash)
	c.Header("X-Input-Hash", result.InputHash)
	c.Header("X-Output-Hash", result.OutputHash)
	c.Data(http.StatusOK, "application/octet-stream", result.Output)
}
