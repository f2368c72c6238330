// Package diag defines the diagnostic model shared by every pipeline stage.
//
// # Purpose
//
//   - Carry warnings and errors from the type-stripping transform, the
//     component compiler and the pipeline itself in one shape.
//   - Translate positions reported against intermediate text (preprocessed or
//     compiled) back to the file the user authored.
//
// # Scope
//
// Package diag does no IO and no rendering. Rendering lives in
// internal/diagfmt; conversion to the host bundler's message type lives in
// the plugin package.
//
// # Data model
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – stable string identifier; compiler codes pass through untouched.
//   - Text – human oriented message.
//   - Location – file, 1-based line, 0-based column, span length and the
//     excerpted line. Absent for message-only diagnostics.
//
// Message is the raw input form: a finding with optional start/end points
// in compiled coordinates. Translator turns Messages into Diagnostics.
//
// # Translation policy
//
// When a sourcemap is available the start point is looked up and replaced
// by the original position on a hit. The end point is never retranslated and
// the span length is measured in compiled text: a multi-line span runs to the
// end of its first line. Misses keep compiled coordinates; translation never
// fails.
package diag
