// Package session manages signed-in desktop sessions.
//
// A session owns everything one browser tab of the desktop needs:
//   - Engine: filesystem operations, undo history and clipboard
//   - Index: the rendered containers and windows
//   - Watchers: app instances listening for item changes
//   - Conn and Reconciler: the realtime event stream from the server
//   - UI: prompts, alerts, progress and app messages
//
// Example Usage:
//
//	manager := session.NewManager(session.Options{Config: cfg, NewUI: newUI})
//	s, err := manager.Create(ctx, token)
//	rec, err := s.Engine.StartOperation(ctx, engine.Request{Kind: types.OpNewFolder, Destination: s.Desktop()})
//	err = manager.Delete(s.ID)
package session
