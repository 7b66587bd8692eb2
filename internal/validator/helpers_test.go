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

// Minimal test-only wasm binary builder. Hand-assembled byte by byte
// to exercise the parser against the actual binary layout rather than
// round-tripping through a third-party encoder.

func uleb128Enc(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

func nameBytes(s string) []byte {
	out := uleb128Enc(uint32(len(s)))
	return append(out, []byte(s)...)
}

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, uleb128Enc(uint32(len(payload)))...)
	out = append(out, payload...)
	return out
}

type moduleBuilder struct {
	funcImportCount int
	funcTypes       [][2][]byte // [params, results]
	localFuncTypeIdx []uint32
	exports         []struct {
		name string
		kind byte
		idx  uint32
	}
}

func (b *moduleBuilder) addType(params, results []byte) uint32 {
	b.funcTypes = append(b.funcTypes, [2][]byte{params, results})
	return uint32(len(b.funcTypes) - 1)
}

func (b *moduleBuilder) addFuncImport() uint32 {
	idx := uint32(b.funcImportCount)
	b.funcImportCount++
	return idx
}

func (b *moduleBuilder) addLocalFunc(typeIdx uint32) uint32 {
	b.localFuncTypeIdx = append(b.localFuncTypeIdx, typeIdx)
	return uint32(b.funcImportCount + len(b.localFuncTypeIdx) - 1)
}

func (b *moduleBuilder) addExport(name string, kind byte, idx uint32) {
	b.exports = append(b.exports, struct {
		name string
		kind byte
		idx  uint32
	}{name, kind, idx})
}

func (b *moduleBuilder) build() []byte {
	out := append([]byte{}, wasmMagic[:]...)
	out = append(out, 0x01, 0x00, 0x00, 0x00) // version 1

	if len(b.funcTypes) > 0 {
		var payload []byte
		payload = append(payload, uleb128Enc(uint32(len(b.funcTypes)))...)
		for _, t := range b.funcTypes {
			payload = append(payload, 0x60)
			payload = append(payload, uleb128Enc(uint32(len(t[0])))...)
			payload = append(payload, t[0]...)
			payload = append(payload, uleb128Enc(uint32(len(t[1])))...)
			payload = append(payload, t[1]...)
		}
		out = append(out, section(sectionType, payload)...)
	}

	if b.funcImportCount > 0 {
		var payload []byte
		payload = append(payload, uleb128Enc(uint32(b.funcImportCount))...)
		for i := 0; i < b.funcImportCount; i++ {
			payload = append(payload, nameBytes("env")...)
			payload = append(payload, nameBytes("f")...)
			payload = append(payload, externKindFunc)
			payload = append(payload, uleb128Enc(0)...)
		}
		out = append(out, section(sectionImport, payload)...)
	}

	if len(b.localFuncTypeIdx) > 0 {
		var payload []byte
		payload = append(payload, uleb128Enc(uint32(len(b.localFuncTypeIdx)))...)
		for _, idx := range b.localFuncTypeIdx {
			payload = append(payload, uleb128Enc(idx)...)
		}
		out = append(out, section(sectionFunction, payload)...)
	}

	if len(b.exports) > 0 {
		var payload []byte
		payload = append(payload, uleb128Enc(uint32(len(b.exports)))...)
		for _, e := range b.exports {
			payload = append(payload, nameBytes(e.name)...)
			payload = append(payload, e.kind)
			payload = append(payload, uleb128Enc(e.idx)...)
		}
		out = append(out, section(sectionExport, payload)...)
	}

	return out
}
