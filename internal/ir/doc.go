// Package ir provides the canonical data model for the tabula rules kernel.
//
// This package contains type definitions, their JSON codecs, canonical
// serialization and hashing. All other internal packages import ir; ir
// imports nothing internal. This keeps the data model the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - integer arithmetic only (int64)
//   - GameDef is read-only once decoded; GameState is only mutated through
//     an owned working copy (see Clone) inside one kernel call
//   - All JSON tags use camelCase, matching the compiler's output
//   - Wire encoding of 64-bit words is "0x" + lowercase hex (Hex64)
package ir
