// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store implements the content-addressed blob store, the
// append-only event log, and the alias registry on a single BadgerDB
// instance. All three relations from the persistence schema are modeled
// as distinct key spaces inside one KV engine, with secondary-index keys
// standing in for the schema's SQL indexes.
package store

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Sentinel errors surfaced at component boundaries.
var (
	ErrBlobNotFound        = errors.New("blob not found")
	ErrAliasNotFound       = errors.New("alias not found")
	ErrAliasTargetMissing  = errors.New("alias target blob does not exist")
	ErrRefNotFound         = errors.New("ref does not resolve to an alias or a blob")
	ErrEmptyName           = errors.New("name must not be empty")
)

// BadgerDB key prefixes. Each relation gets its own namespace; secondary
// indexes get a "_by_<column>" suffix, mirroring the indexes the
// persistence schema declares on events.type, events.language,
// events.input_hash, and aliases.hash. There is no events.timestamp
// index key; event keys themselves are ordered by event id.
const (
	keyPrefixBlobData = "blob:"
	keySuffixData      = ":data"
	keySuffixMeta       = ":meta"

	keyPrefixAlias       = "alias:"
	keyPrefixAliasByHash = "alias_by_hash:"

	keyPrefixEvent           = "event:"
	keyPrefixEventByType     = "event_by_type:"
	keyPrefixEventByLanguage = "event_by_language:"
	keyPrefixEventByInput    = "event_by_input_hash:"

	eventSeqKey = "event:__sequence__"

	// eventIDWidth zero-pads event ids so lexicographic badger key order
	// matches numeric order, letting Recent() walk the prefix in reverse
	// without a secondary sort.
	eventIDWidth = 20
)

// Store is the durable state machine behind the blob store, alias
// registry, and event log. Safe for concurrent use; BadgerDB handles its
// own concurrency control and every exposed operation is wrapped in a
// single transaction.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	seq    *badger.Sequence
}

// Open opens (creating if absent) a BadgerDB at path and returns a Store
// backed by it. The caller owns the returned Store and must call Close
// when done.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger db at %s: %w", path, err)
	}

	seq, err := db.GetSequence([]byte(eventSeqKey), 100)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("acquiring event id sequence: %w", err)
	}

	return &Store{db: db, logger: logger, seq: seq}, nil
}

// OpenInMemory opens an in-memory BadgerDB, for tests.
func OpenInMemory(logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory badger db: %w", err)
	}
	seq, err := db.GetSequence([]byte(eventSeqKey), 100)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("acquiring event id sequence: %w", err)
	}
	return &Store{db: db, logger: logger, seq: seq}, nil
}

// Close releases the sequence lease and closes the underlying BadgerDB.
func (s *Store) Close() error {
	if s.seq != nil {
		if err := s.seq.Release(); err != nil {
			s.logger.Warn("releasing event sequence", slog.String("error", err.Error()))
		}
	}
	return s.db.Close()
}
