// Package realtime keeps the local desktop consistent with changes made
// by every session of the user.
//
// A Conn holds the event stream to the server and reconnects with
// exponential backoff. Every decoded envelope is handed to a Reconciler,
// which notifies watching apps, drops echoes of this session's own
// mutations and patches the desktop surface for the rest.
//
// Usage:
//
//	conn := realtime.NewConn(realtime.ConnConfig{URL: url, Token: token, SocketID: sock})
//	rec := realtime.NewReconciler(realtime.ReconcilerOptions{SocketID: sock, Surface: index})
//	go conn.Run(ctx, rec.Dispatch(ctx))
package realtime
