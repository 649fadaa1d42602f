//go:build !wasm
// +build !wasm

// Package gorm provides the GORM-backed AuthStore used in production, with
// Postgres as the primary target.
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - users: User accounts with onboarding state
//   - sessions: Server-side session records
//   - magic_link_tokens: Single-use email sign-in tokens
//
// # Usage
//
//	store, _ := gormstore.Open(dsn)
//	svc := edgeauth.New("EDGE")
//	svc.Store = store
package gorm
