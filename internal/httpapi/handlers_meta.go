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
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// HandleEvents implements GET /events?limit=N.
func (h *Handlers) HandleEvents(c *gin.Context) {
	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}
	events, err := h.Service.RecentEvents(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL"})
		return
	}
	c.JSON(http.StatusOK, events)
}

// HandleStats implements GET /stats.
func (h *Handlers) HandleStats(c *gin.Context) {
	aliases, err := h.Service.ListAliases()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL"})
		return
	}
	events, err := h.Service.RecentEvents(500)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL"})
		return
	}
	c.JSON(http.StatusOK, StatsResponse{
		Languages:   h.Service.Languages(),
		AliasCount:  len(aliases),
		RecentCount: len(events),
	})
}

// HandleLanguages implements GET /languages.
func (h *Handlers) HandleLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": h.Service.Languages()})
}
