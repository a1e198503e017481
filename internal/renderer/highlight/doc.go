// Package highlight turns syntax captures into styled text.
//
// BuildTokens clips the captures of one window and resolves their styles
// through a theme. The Highlighter runs the whole pass (fetch captures,
// build tokens, composite, spell) either inline with HighlightSynchronously
// or in the background with HighlightAsync.
//
// Asynchronous passes are single-flight: each new request cancels the one
// before it. Capture fetching and token building run on a worker scheduler;
// sink mutation and completion run on a serialized delivery context. Every
// completion fires exactly once, with nil, ErrCancelled, ErrDeallocated or
// ErrFailed, and a cancelled pass never touches its sink.
package highlight
