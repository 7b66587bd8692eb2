// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validator

import "fmt"

var wasmMagic = [4]byte{0x00, 0x61, 0x73, 0x6D}

const (
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionExport   = 7
)

const (
	externKindFunc   = 0
	externKindTable  = 1
	externKindMemory = 2
	externKindGlobal = 3
)

// funcType is a decoded entry from the Type section: parameter and
// result value types, stored as their raw wasm value-type bytes.
type funcType struct {
	params  []byte
	results []byte
}

// exportEntry is a decoded entry from the Export section.
type exportEntry struct {
	name  string
	kind  byte
	index uint32
}

// module is the subset of a decoded wasm binary the validator needs.
type module struct {
	types       []funcType
	funcImports uint32
	funcTypeIdx []uint32 // type indices of locally defined functions, in order
	exports     []exportEntry
}

// parseModule walks the wasm binary layout per the section order the
// contract validator cares about. It panics on any malformed input;
// Validate recovers and turns the panic into a decode error.
func parseModule(data []byte) *module {
	r := &reader{data: data}

	var magic [4]byte
	copy(magic[:], r.bytes(4))
	if magic != wasmMagic {
		panic(fmt.Errorf("bad magic bytes: %x", magic))
	}
	r.skip(4) // version

	sections := map[byte][]byte{}
	for r.pos < len(r.data) {
		id := r.byte()
		size := r.u32()
		payload := r.bytes(int(size))
		sections[id] = payload // later duplicate sections overwrite earlier ones
	}

	m := &module{}
	if payload, ok := sections[sectionType]; ok {
		m.types = decodeTypeSection(payload)
	}
	if payload, ok := sections[sectionImport]; ok {
		m.funcImports = decodeImportSection(payload)
	}
	if payload, ok := sections[sectionFunction]; ok {
		m.funcTypeIdx = decodeFunctionSection(payload)
	}
	if payload, ok := sections[sectionExport]; ok {
		m.exports = decodeExportSection(payload)
	}
	return m
}

func decodeTypeSection(payload []byte) []funcType {
	r := &reader{data: payload}
	count := r.u32()
	types := make([]funcType, 0, count)
	for i := uint32(0); i < count; i++ {
		form := r.byte()
		if form != 0x60 {
			panic(fmt.Errorf("unexpected functype form byte: 0x%02x", form))
		}
		paramCount := r.u32()
		params := append([]byte(nil), r.bytes(int(paramCount))...)
		resultCount := r.u32()
		results := append([]byte(nil), r.bytes(int(resultCount))...)
		types = append(types, funcType{params: params, results: results})
	}
	return types
}

// decodeImportSection walks the Import section fully per the wasm
// binary format (table and memory imports carry a `limits` structure
// whose size depends on the leading flag byte; global imports carry a
// value type plus a mutability byte). Only funcImports is returned —
// the validator has no other use for this section's contents — but
// every import must still be decoded correctly so the cursor lands on
// the right offset for whatever follows.
func decodeImportSection(payload []byte) uint32 {
	r := &reader{data: payload}
	count := r.u32()
	var funcImports uint32
	for i := uint32(0); i < count; i++ {
		r.name() // module
		r.name() // name
		kind := r.byte()
		switch kind {
		case externKindFunc:
			r.u32() // type index
			funcImports++
		case externKindTable:
			r.byte() // element type
			r.limits()
		case externKindMemory:
			r.limits()
		case externKindGlobal:
			r.byte() // value type
			r.byte() // mutability
		default:
			panic(fmt.Errorf("unknown import kind: 0x%02x", kind))
		}
	}
	return funcImports
}

func decodeFunctionSection(payload []byte) []uint32 {
	r := &reader{data: payload}
	count := r.u32()
	idx := make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		idx = append(idx, r.u32())
	}
	return idx
}

func decodeExportSection(payload []byte) []exportEntry {
	r := &reader{data: payload}
	count := r.u32()
	exports := make([]exportEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		name := r.name()
		kind := r.byte()
		index := r.u32()
		exports = append(exports, exportEntry{name: name, kind: kind, index: index})
	}
	return exports
}
