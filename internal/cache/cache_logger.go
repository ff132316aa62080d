package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// ViewKey names the view state of one dashboard view inside a session
func ViewKey(sessionID, view string) string {
	return fmt.Sprintf("%s:%s", sessionID, view)
}

// InvalidateSessionViews drops every view state and sequence counter that
// belongs to sessionID.
func InvalidateSessionViews(ctx context.Context, cm *CacheManager, sessionID string) {
	SafeInvalidatePattern(ctx, cm.View, sessionID+":*")
	SafeInvalidatePattern(ctx, cm.Sequence, sessionID+":*")
	SafeInvalidatePattern(ctx, cm.Guard, sessionID+":*")
}
