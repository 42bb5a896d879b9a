// Package remotefs is the typed client of the cloud filesystem API.
//
// Every verb is a blocking call that returns either a success payload or
// a typed failure. Same-name conflicts are reported as *Error with code
// CodeItemWithSameNameExists and the conflicting entry name; callers use
// IsConflict to route them to the conflict resolver.
//
// Verbs mutate server state and are never retried automatically. The only
// retry is the one the user asks for when resolving a conflict.
//
// Mutating requests carry the originator socket id. The server tags the
// realtime events it broadcasts with it, which lets the originating
// session discard its own echoes.
package remotefs
