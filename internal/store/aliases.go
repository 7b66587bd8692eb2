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
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Alias is a mutable name -> blob hash pointer.
type Alias struct {
	Name      string    `json:"name"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func aliasKey(name string) []byte       { return []byte(keyPrefixAlias + name) }
func aliasByHashKey(hash, name string) []byte {
	return []byte(keyPrefixAliasByHash + hash + ":" + name)
}

// SetAlias upserts name to point at hash. The target blob must already
// exist; if it does not, ErrAliasTargetMissing is returned and no alias
// is created or modified. On first write created_at and updated_at are
// equal; on subsequent writes created_at is preserved and updated_at is
// refreshed.
func (s *Store) SetAlias(name, hash string) (*Alias, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	var result Alias
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(blobMetaKey(hash)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrAliasTargetMissing
			}
			return fmt.Errorf("checking alias target %s: %w", hash, err)
		}

		now := time.Now().UTC()
		existing := Alias{Name: name, Hash: hash, CreatedAt: now, UpdatedAt: now}

		item, err := txn.Get(aliasKey(name))
		switch {
		case err == nil:
			var prior Alias
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &prior) }); err != nil {
				return fmt.Errorf("reading prior alias %s: %w", name, err)
			}
			existing.CreatedAt = prior.CreatedAt
			if prior.Hash != hash {
				if err := txn.Delete(aliasByHashKey(prior.Hash, name)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("removing stale alias index: %w", err)
				}
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			// fresh name, existing already has created_at = updated_at = now
		default:
			return fmt.Errorf("reading alias %s: %w", name, err)
		}

		data, err := json.Marshal(existing)
		if err != nil {
			return fmt.Errorf("marshaling alias %s: %w", name, err)
		}
		if err := txn.Set(aliasKey(name), data); err != nil {
			return fmt.Errorf("storing alias %s: %w", name, err)
		}
		if err := txn.Set(aliasByHashKey(hash, name), nil); err != nil {
			return fmt.Errorf("storing alias index %s: %w", name, err)
		}

		result = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetAlias returns the alias record for name, or ErrAliasNotFound.
func (s *Store) GetAlias(name string) (*Alias, error) {
	var a Alias
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(aliasKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrAliasNotFound
		}
		if err != nil {
			return fmt.Errorf("reading alias %s: %w", name, err)
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &a) })
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteAlias removes name, reporting whether a row was actually
// removed.
func (s *Store) DeleteAlias(name string) (bool, error) {
	removed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(aliasKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading alias %s: %w", name, err)
		}
		var a Alias
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &a) }); err != nil {
			return fmt.Errorf("reading alias %s: %w", name, err)
		}
		if err := txn.Delete(aliasKey(name)); err != nil {
			return fmt.Errorf("deleting alias %s: %w", name, err)
		}
		if err := txn.Delete(aliasByHashKey(a.Hash, name)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("deleting alias index %s: %w", name, err)
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// ListAliases returns every alias ordered by name ascending.
func (s *Store) ListAliases() ([]*Alias, error) {
	var aliases []*Alias
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixAlias)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var a Alias
			err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &a) })
			if err != nil {
				return fmt.Errorf("decoding alias: %w", err)
			}
			aliases = append(aliases, &a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(aliases, func(i, j int) bool { return aliases[i].Name < aliases[j].Name })
	return aliases, nil
}

// AliasesForHash returns the names of every alias currently pointing at
// hash, using the alias_by_hash secondary index.
func (s *Store) AliasesForHash(hash string) ([]string, error) {
	var names []string
	prefix := []byte(keyPrefixAliasByHash + hash + ":")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			names = append(names, key[len(prefix):])
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing aliases for hash %s: %w", hash, err)
	}
	return names, nil
}
