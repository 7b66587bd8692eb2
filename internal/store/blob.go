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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BlobMeta is the non-content half of a blob row: everything but the
// bytes themselves.
type BlobMeta struct {
	Hash      string    `json:"hash"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// HashBytes returns the canonical lowercase-hex SHA-256 of data. This is
// the sole hashing entry point for the store, so every blob identity in
// the system is computed the same way.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func blobDataKey(hash string) []byte { return []byte(keyPrefixBlobData + hash + keySuffixData) }
func blobMetaKey(hash string) []byte { return []byte(keyPrefixBlobData + hash + keySuffixMeta) }

// PutBlob inserts data into the store if no blob with the same content
// hash already exists, and returns the hash either way. Insertion is
// idempotent: a repeat Put of identical bytes is a no-op that preserves
// the original row's created_at.
func (s *Store) PutBlob(data []byte) (string, error) {
	hash := HashBytes(data)

	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(blobMetaKey(hash))
		if err == nil {
			// Row already exists; content-addressed, so nothing to do.
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("checking existing blob %s: %w", hash, err)
		}

		meta := BlobMeta{Hash: hash, Size: int64(len(data)), CreatedAt: time.Now().UTC()}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshaling blob metadata: %w", err)
		}

		if err := txn.Set(blobDataKey(hash), data); err != nil {
			return fmt.Errorf("storing blob data: %w", err)
		}
		if err := txn.Set(blobMetaKey(hash), metaJSON); err != nil {
			return fmt.Errorf("storing blob metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("putting blob: %w", err)
	}
	return hash, nil
}

// GetBlob returns the stored bytes for hash, or ErrBlobNotFound.
func (s *Store) GetBlob(hash string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blobDataKey(hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrBlobNotFound
		}
		if err != nil {
			return fmt.Errorf("reading blob %s: %w", hash, err)
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// BlobMetadata returns the metadata row for hash, or ErrBlobNotFound.
func (s *Store) BlobMetadata(hash string) (*BlobMeta, error) {
	var meta BlobMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blobMetaKey(hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrBlobNotFound
		}
		if err != nil {
			return fmt.Errorf("reading blob metadata %s: %w", hash, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// BlobSize returns the size of the blob stored under hash, or
// ErrBlobNotFound.
func (s *Store) BlobSize(hash string) (int64, error) {
	meta, err := s.BlobMetadata(hash)
	if err != nil {
		return 0, err
	}
	return meta.Size, nil
}

// HasBlob reports whether a blob with the given hash is stored.
func (s *Store) HasBlob(hash string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(blobMetaKey(hash))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking blob %s: %w", hash, err)
	}
	return true, nil
}
