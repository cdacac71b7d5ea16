/*
Package streaming keeps long-lived HTTP responses from hanging on clients
that stop reading.

The player of a block is driven over a server-sent event stream that stays
open as long as the editor page does, so the HTTP server runs without a
write timeout. [Writer] puts a deadline on each write and flush instead.
When one stalls, the writer's context is cancelled, the connection's write
deadline is moved to now through [http.ResponseController], and every later
write returns [ErrWriteTimeout].

# Usage

	sw := streaming.NewWriter(r.Context(), w, streaming.DefaultConfig())
	defer sw.Close()

	err := surface.Stream(sw.Context(), sw, sw.Flush, keepalive)

Response writer wrappers in front of the handler must implement Unwrap so
the deadline reaches the connection. Without it the stalled write is
abandoned and Close waits at most a second for it.
*/
package streaming
