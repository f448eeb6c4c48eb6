// Package ir provides the value model shared by every flexiq package.
//
// This package contains type definitions and codecs only. All other internal
// packages import ir; ir imports nothing internal.
//
// Values flow through three places:
//   - filter operands, where the runtime variant decides quoting (only String is quoted)
//   - PUT request bodies, encoded with Marshal
//   - decoded response payloads, produced by Decode and walked by the
//     association extractor
//
// Request plans are hashed with ContentHash over RFC 8785 canonical JSON so the
// request journal can group identical requests.
package ir
