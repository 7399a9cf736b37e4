// Package memory implements the runtime and offline halves of the Memory
// Store & Compactor (C7): a thin write path for session-end summaries, and
// an offline job that groups, summarises, and replaces aged memories.
package memory

import (
	"context"
	"time"

	"github.com/Aman-CERP/coderag/internal/store"
)

// Write saves a new ConversationMemory at session end (§4.7 runtime side).
// Timestamp is stamped now-UTC if the caller left it zero.
func Write(ctx context.Context, adapter store.Adapter, m store.ConversationMemory) (string, error) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	return adapter.Insert(ctx, store.CollectionConversationMemory, store.MemoryToProperties(m))
}
