// Package diag defines the diagnostic model shared by all toolchain stages.
//
// # Purpose
//
//   - Turn the unstructured stderr stream of an external tool into ordered,
//     structured records (stage, file, line, message).
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to storage or rendering.
//
// # Scope
//
// Package diag does no formatting and no IO. Rendering lives in
// internal/diagfmt; the decision whether a diagnostic fails a build lives in
// internal/buildpipeline.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Stage – the toolchain stage whose output produced it.
//   - File, Line – the position reported by the tool. Both are optional: a zero
//     Line means the text carried no recoverable position.
//   - Message – the verbatim text line.
//   - Severity – Warning when the text says so, Error otherwise. The tools do
//     not tag their lines reliably, so Severity is advisory.
//
// # Extraction
//
// Extract never drops a line. A line without a "<file>:<line>:" prefix still
// becomes a Diagnostic with File and Line left empty. When a line contains
// "warning:", only the text before it is searched for a position.
//
// # Ordering
//
// Bag keeps diagnostics in the order they were reported. The pipeline reports
// lines as they arrive, so the order across stages matches emission order.
// Bag never sorts or deduplicates.
package diag
