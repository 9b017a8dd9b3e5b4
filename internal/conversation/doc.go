// Package conversation keeps the console's read-through list of agent
// conversations.
//
// # Overview
//
// The backend owns conversations; the Cache holds the most recently fetched
// list ordered most-recent-first (by UpdatedAt) so the sidebar can render
// without a round trip:
//
//	cache := conversation.NewCache(client.Agent, 10, logger)
//	if err := cache.Refresh(ctx); err != nil {
//	    // cache.Err() keeps the failure for display; the old list is kept
//	}
//	for _, c := range cache.Sidebar() {
//	    fmt.Println(c.DisplayTitle())
//	}
//
// Key operations:
//
//   - Refresh(ctx): reload from GET /api/agent/conversations
//   - Sidebar(): the first N entries (the sidebar window)
//   - Find(id): look up one cached conversation
//   - Delete(ctx, id): delete on the server, then drop it locally
//
// # Change events
//
// Every refresh and delete is published through an in-memory Broadcaster.
// Front ends subscribe to redraw the sidebar instead of polling:
//
//	events, _ := cache.Subscribe(ctx)
//	for ev := range events {
//	    redraw(ev)
//	}
//
// Publishing never blocks; events are dropped for subscribers whose buffer
// is full.
package conversation
