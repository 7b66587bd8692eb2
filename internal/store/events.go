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

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// EventType is one of the four logical operations the core records.
type EventType string

const (
	EventCompile EventType = "compile"
	EventExecute EventType = "execute"
	EventResolve EventType = "resolve"
	EventAlias   EventType = "alias"
)

// Event is an append-only record of one logical operation. The schema's
// nullable columns are modeled as pointer/zero-value fields: a field is
// only populated by the event types that use it. Per the schema's
// documented overloading, OutputHash on a resolve or alias event means
// "the hash the alias now points to," not "the output of an execution."
type Event struct {
	ID         uint64    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	Language   string    `json:"language,omitempty"`
	InputHash  string    `json:"input_hash,omitempty"`
	OutputHash string    `json:"output_hash,omitempty"`
	ModuleHash string    `json:"module_hash,omitempty"`
	Alias      string    `json:"alias,omitempty"`
	OutputSize *int64    `json:"output_size,omitempty"`
	DurationMs *int64    `json:"duration_ms,omitempty"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
}

const defaultRecentLimit = 50
const maxRecentLimit = 500

func eventKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%0*d", keyPrefixEvent, eventIDWidth, id))
}

// EventSubscriber receives a best-effort live feed of newly recorded
// events. Subscribers that fall behind may miss ticks — the durable log
// itself (RecordEvent / Recent) never drops anything; only this optional
// tail view does.
type EventSubscriber chan *Event

var (
	subMu       sync.Mutex
	subscribers = map[chan *Event]struct{}{}
)

// Subscribe registers ch to receive a copy of every event recorded from
// this point forward. Call the returned func to unsubscribe.
func Subscribe(ch EventSubscriber) (unsubscribe func()) {
	subMu.Lock()
	subscribers[ch] = struct{}{}
	subMu.Unlock()
	return func() {
		subMu.Lock()
		delete(subscribers, ch)
		subMu.Unlock()
	}
}

func broadcast(e *Event) {
	subMu.Lock()
	defer subMu.Unlock()
	for ch := range subscribers {
		select {
		case ch <- e:
		default:
			// Slow subscriber; drop this tick rather than block the writer.
		}
	}
}

// recordMu serializes id allocation and commit in RecordEvent, so an
// event never commits before one holding a lower id.
var recordMu sync.Mutex

// RecordEvent assigns an id and timestamp, persists e, and returns the
// stored copy. Event ids come from a badger.Sequence and are allocated
// and committed under recordMu, so they are strictly increasing in
// commit order across concurrent writers.
func (s *Store) RecordEvent(e *Event) (*Event, error) {
	recordMu.Lock()
	defer recordMu.Unlock()

	id, err := s.seq.Next()
	if err != nil {
		return nil, fmt.Errorf("allocating event id: %w", err)
	}

	stored := *e
	stored.ID = id
	stored.Timestamp = time.Now().UTC()

	data, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("marshaling event %d: %w", id, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(eventKey(id), data); err != nil {
			return fmt.Errorf("storing event %d: %w", id, err)
		}
		if err := txn.Set([]byte(fmt.Sprintf("%s%s:%0*d", keyPrefixEventByType, stored.Type, eventIDWidth, id)), nil); err != nil {
			return fmt.Errorf("storing event type index %d: %w", id, err)
		}
		if stored.Language != "" {
			if err := txn.Set([]byte(fmt.Sprintf("%s%s:%0*d", keyPrefixEventByLanguage, stored.Language, eventIDWidth, id)), nil); err != nil {
				return fmt.Errorf("storing event language index %d: %w", id, err)
			}
		}
		if stored.InputHash != "" {
			if err := txn.Set([]byte(fmt.Sprintf("%s%s:%0*d", keyPrefixEventByInput, stored.InputHash, eventIDWidth, id)), nil); err != nil {
				return fmt.Errorf("storing event input-hash index %d: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recording event: %w", err)
	}

	broadcast(&stored)
	return &stored, nil
}

// Recent returns the last limit events in descending id order (most
// recent first). limit is clamped to [1, 500], defaulting to 50 when
// <= 0.
func (s *Store) Recent(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	var events []*Event
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		prefix := []byte(keyPrefixEvent)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seeking to prefix+0xFF with Reverse finds the lexicographically
		// largest key under the prefix, i.e. the highest event id.
		seekFrom := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seekFrom); it.ValidForPrefix(prefix) && len(events) < limit; it.Next() {
			key := it.Item().Key()
			if string(key) == eventSeqKey {
				continue
			}
			var e Event
			err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &e) })
			if err != nil {
				return fmt.Errorf("decoding event %s: %w", key, err)
			}
			events = append(events, &e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing recent events: %w", err)
	}
	return events, nil
}
