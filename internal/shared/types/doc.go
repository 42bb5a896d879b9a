// Package types provides shared data structures for the desktop engine.
//
// These types are used across the remote filesystem client, the batch
// engine, the realtime reconciler and the local API, and they are the
// wire format exchanged with the cloud filesystem server.
//
// Core Types:
//   - Item: one filesystem entry (file, directory or shortcut)
//   - TrashMetadata: metadata stamped on entries moved into the Trash
//   - ItemEvent: realtime notification about an entry
//   - OperationKind: the kind of a batch operation
//
// Wire fields on Item and ItemEvent must round-trip unchanged between
// client and server: uid, path, old_path, name, is_dir, size, modified,
// original_client_socket_id, descendants_only, overwritten_uid and
// parent_dirs_created.
//
// Example Usage:
//
//	item := types.Item{UID: "f1", Path: "/alice/Desktop/a.txt", Name: "a.txt"}
//	trashed := item.WithTrashMetadata(time.Now())
//	info, ok := trashed.TrashInfo() // ok == true
package types
