// Package models defines domain entities and persistence interfaces for the psync reconciliation engine.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs carried between layers
//   - [Playlist] : Playlist metadata (name, description, visibility, cover ref)
//   - [Track] : Song metadata with the remote external id used for sync membership
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [PersistedPlaylist] : The locally editable playlist copy, optionally bound to a remote id
//   - [PersistedTrack] : Locally stored tracks, deduplicated by external id
//   - [Baseline] : The last fully successful sync snapshot used as the three-way diff pivot
//   - [Credential] : Remote account tokens with expiry tracking
//
// Persistent entities implement the [Model] interface providing ID generation, timestamps, validation, and soft delete support.
// [Baseline] and [Credential] are keyed by playlist and account rather than UUID and sit outside the Model/sequence scheme.
// The [Repository] interface defines standard CRUD operations for database access.
package models
