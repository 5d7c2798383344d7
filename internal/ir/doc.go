// Package ir defines the intermediate representation consumed by the
// validator and the dependency graph.
//
// This package contains type definitions and decoding only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// IR the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - A Document is pure data: it is rebuilt from scratch on every decode
//     and carries no behavior beyond JSON (un)marshaling.
//   - Expression nodes stay generic (Expr) so that malformed input can be
//     diagnosed field by field instead of being rejected wholesale.
//   - Section aliases from producing tools ("state"/"entities",
//     "functions"/"commands") are resolved at decode time; canonical names
//     are used everywhere downstream.
package ir
