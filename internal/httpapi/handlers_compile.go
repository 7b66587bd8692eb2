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
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unbiasedzucchini/wasmforge/internal/compiler"
)

// HandleCompile implements POST /compile/:language. The request body
// is the raw source text; the response body is the compiled module
// bytes on success, with contract-validation metadata surfaced as
// headers rather than forcing the client to re-parse a JSON envelope.
func (h *Handlers) HandleCompile(c *gin.Context) {
	language := c.Param("language")

	source, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body", Code: "BAD_BODY"})
		return
	}

	result, err := h.Service.Compile(c.Request.Context(), language, source)
	if err != nil {
		if failure, ok := err.(*compiler.CompileFailure); ok {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: failure.Message(), Code: "COMPILE_FAILED"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL"})
		return
	}

	c.Header("X-Input-Hash", result.InputHash)
	c.Header("X-Output-Hash", result.OutputHash)
	setContractHeaders(c, result.Validation.Valid, result.Validation.Errors, result.Validation.Warnings)

	c.Data(http.StatusOK, "application/wasm", result.Bytes)
}

// HandleValidate implements POST /validate: the request body is raw
// wasm bytes, the response is the validator.Result as JSON.
func (h *Handlers) HandleValidate(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body", Code: "BAD_BODY"})
		return
	}
	result := h.Service.ValidateBytes(c.Request.Context(), data)
	c.JSON(http.StatusOK, result)
}

func setContractHeaders(c *gin.Context, valid bool, errs, warnings []string) {
	if valid {
		c.Header("X-Contract-Valid", "true")
	} else {
		c.Header("X-Contract-Valid", "false")
	}
	if len(errs) > 0 {
		if data, err := json.Marshal(errs); err == nil {
			c.Header("X-Contract-Errors", string(data))
		}
	}
	if len(warnings) > 0 {
		if data, err := json.Marshal(warnings); err == nil {
			c.Header("X-Contract-Warnings", string(data))
		}
	}
}
