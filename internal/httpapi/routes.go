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

import "github.com/gin-gonic/gin"

// RegisterRoutes wires every wasmforge HTTP endpoint onto rg.
//
//	POST   /compile/:language  - compile source, store + validate the module
//	POST   /validate           - validate raw wasm bytes directly
//	POST   /run/:ref           - execute a stored module by alias or hash
//	GET    /blob/:ref          - fetch blob bytes by alias or hash
//	HEAD   /blob/:ref          - fetch blob size/metadata only
//	GET    /aliases            - list all aliases
//	GET    /alias/:name        - read one alias
//	PUT    /alias/:name        - create or update an alias
//	DELETE /alias/:name        - remove an alias
//	GET    /events             - recent event log entries
//	GET    /events/stream      - live event tail over a websocket
//	GET    /stats              - service-level counters
//	GET    /languages          - registered compile languages
//
// /healthz and /metrics are registered directly on the root router in
// cmd/wasmforged, not here, since they sit outside the API route
// group.
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.POST("/compile/:language", h.HandleCompile)
	rg.POST("/validate", h.HandleValidate)
	rg.POST("/run/:ref", h.HandleRun)
	rg.GET("/blob/:ref", h.HandleGetBlob)
	rg.HEAD("/blob/:ref", h.HandleHeadBlob)
	rg.GET("/aliases", h.HandleListAliases)
	rg.GET("/alias/:name", h.HandleGetAlias)
	rg.PUT("/alias/:name", h.HandlePutAlias)
	rg.DELETE("/alias/:name", h.HandleDeleteAlias)
	rg.GET("/events", h.HandleEvents)
	rg.GET("/events/stream", h.HandleEventStream)
	rg.GET("/stats", h.HandleStats)
	rg.GET("/languages", h.HandleLanguages)
}
