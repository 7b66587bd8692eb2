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
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unbiasedzucchini/wasmforge/internal/store"
)

// HandleGetBlob implements GET /blob/:ref.
func (h *Handlers) HandleGetBlob(c *gin.Context) {
	ref := c.Param("ref")
	resolved, err := h.Service.ResolveRef(ref)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ref not found: " + ref, Code: "REF_NOT_FOUND"})
		return
	}

	data, err := h.Service.GetBlob(resolved.Hash)
	if err != nil {
		if errors.Is(err, store.ErrBlobNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "blob not found", Code: "BLOB_NOT_FOUND"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL"})
		return
	}

	if resolved.Alias != "" {
		c.Header("X-Resolved-Hash", resolved.Hash)
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// HandleHeadBlob implements HEAD /blob/:ref: same resolution as
// HandleGetBlob but reports size via Content-Length without a body.
func (h *Handlers) HandleHeadBlob(c *gin.Context) {
	ref := c.Param("ref")
	resolved, err := h.Service.ResolveRef(ref)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	meta, err := h.Service.BlobMetadata(resolved.Hash)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	if resolved.Alias != "" {
		c.Header("X-Resolved-Hash", resolved.Hash)
	}
	c.Header("Content-Length", strconv.FormatInt(meta.Size, 10))
	c.Status(http.StatusOK)
}
