// Package paths provides virtual path algebra for the cloud filesystem.
//
// Virtual paths are POSIX style, rooted at "/" and compared
// case-insensitively. Every user owns a home directory at "/<username>"
// with a Trash container directly below it.
//
// # Layout
//
//	/<username>/
//	  ├── Desktop/
//	  ├── Documents/
//	  └── Trash/        (soft-deleted entries, renamed to their uid)
//
// # Usage
//
//	trash := paths.Trash(paths.Home("alice"), "")   // /alice/Trash
//	paths.IsWithin("/alice/Trash/123", trash)       // true
//	paths.Rebase("/a/b/c", "/a/b", "/x")            // /x/c
package paths
