// Package toast serializes transient status messages.
//
// A Queue shows one toast at a time. Each toast stays visible for its
// duration, is hidden, and after a short gap the next pending toast (if any)
// is shown. Requests are displayed in the order Show was called.
//
//	q := toast.New(logger, toast.SurfaceFunc(render))
//	defer q.Close()
//	q.Success("Design saved", 0)
//	q.Error("Upload failed", 5*time.Second)
//
// The queue is a small state machine (IDLE, SHOWING, HIDING) that owns a
// single timer at a time; every state change is rendered to the Surface and
// published on Events.
package toast
