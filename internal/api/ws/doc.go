// Package ws is the browser side of a desktop session.
//
// A Surface implements the prompter, progress and app messaging
// collaborators of the engine over one websocket per session. Server
// messages carry a "type":
//
//	prompt           {id, entry_name, message, choices}
//	confirm          {id, message}
//	alert            {message}
//	progress         {operation_id, kind, percent, status}
//	progress_closed  {operation_id}
//	app_message      {instance_id, message}
//
// The browser replies with prompt_response {id, choice|confirmed},
// cancel_operation {operation_id} and instance_closed {instance_id}.
// HTML in prompt and alert messages is sanitized before it is sent.
package ws
