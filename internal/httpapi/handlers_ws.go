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

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/unbiasedzucchini/wasmforge/internal/store"
)

var eventUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Live event tail is a read-only diagnostic feed; any origin may
	// subscribe.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleEventStream implements GET /events/stream: a best-effort live
// tail of the event log over a websocket. This is a supplementary view
// onto the durable log (GET /events remains authoritative); slow
// readers may miss ticks per store.Subscribe's documented semantics.
func (h *Handlers) HandleEventStream(c *gin.Context) {
	conn, err := eventUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Service.Logger.Warn("event stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := make(store.EventSubscriber, 32)
	unsubscribe := store.Subscribe(ch)
	defer unsubscribe()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		}
	}
}
