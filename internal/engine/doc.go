// Package engine executes filesystem operations for one desktop session.
//
// Every operation follows the same shape: items are processed strictly in
// order, the cancellation flag is polled before each item, same-name
// conflicts are handed to a conflict.Resolver, and successful items are
// patched into the desktop surface by uid. A completed batch pushes one
// undo record covering only the items that succeeded.
//
// # Trash
//
// Moving into the Trash container renames the entry to its uid and stamps
// it with its original name and path. Moving an entry carrying that
// metadata anywhere else restores its original name and clears the
// metadata. Destinations below the Trash container are rejected.
//
// # Usage
//
//	eng := engine.New(engine.Options{FS: client, Surface: index, Home: "/alice"})
//	rec, err := eng.StartOperation(ctx, engine.Request{
//		Kind:        types.OpMove,
//		UIDs:        []string{uid},
//		Destination: "/alice/Documents",
//	})
package engine
