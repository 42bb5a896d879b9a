// Package desktop keeps the local view state the renderer draws from:
// open containers (folder listings and the desktop itself), their item
// handles, and open windows.
//
// Items are indexed two ways. A uid index maps an item identity to every
// handle that displays it, and a sorted lowercase path index answers
// path-prefix queries for an item and all of its descendants. Both the
// batch engine and the realtime reconciler patch state through the
// Surface interface, using the Apply helpers so local operations and
// remote events converge on the same result.
package desktop
