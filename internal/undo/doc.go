// Package undo keeps the per-session action history.
//
// Every completed user action pushes one Record describing how to invert
// it. Undo pops the newest record and replays the inverse through an
// Executor, which performs filesystem calls without recording them, so
// undoing never grows the history.
//
//	create_file, create_folder  delete the created entry
//	rename                      rename back to the old name
//	upload, copy                delete every created path
//	move                        move every item back to its original parent
//	delete                      restore every item out of the Trash
package undo
