// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package runtime

// Package runtime implements the fixed linear-memory ABI every
// compiled module is executed under: a flat input region at offset 0
// and a flat output region at offset 65536, sized to wasm's 64KiB page.
const (
	inputPtr  = uint32(0)
	outputPtr = uint32(65536)
	maxOutput = uint32(65536)

	wasmPageSize = uint32(65536)
)

// requiredPages returns how many 64KiB linear-memory pages are needed
// to cover the fixed output region.
func requiredPages() uint32 {
	total := outputPtr + maxOutput
	return (total + wasmPageSize - 1) / wasmPageSize
}
