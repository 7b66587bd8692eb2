// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import "testing"

func TestRecordEventAssignsMonotonicIDs(t *testing.T) {
	s := newTestStore(t)

	var ids []uint64
	for i := 0; i < 5; i++ {
		e, err := s.RecordEvent(&Event{Type: EventCompile, Success: true})
		if err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
		ids = append(ids, e.ID)
	}

	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("event ids not strictly increasing: %v", ids)
		}
	}
}

func TestRecentDescendingOrder(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 10; i++ {
		if _, err := s.RecordEvent(&Event{Type: EventExecute, Success: true}); err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}

	events, err := s.Recent(5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].ID >= events[i-1].ID {
			t.Fatalf("events not in descending id order: %v", eventIDs(events))
		}
	}
}

func TestRecentClampsLimit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 3; i++ {
		if _, err := s.RecordEvent(&Event{Type: EventAlias, Success: true}); err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}

	events, err := s.Recent(0)
	if err != nil {
		t.Fatalf("Recent(0): %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected default limit to return all 3 events, got %d", len(events))
	}

	events, err = s.Recent(10000)
	if err != nil {
		t.Fatalf("Recent(10000): %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected clamped limit to still return only 3 stored events, got %d", len(events))
	}
}

func eventIDs(events []*Event) []uint64 {
	ids := make([]uint64, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}
