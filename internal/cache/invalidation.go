package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeDelete deletes cache keys, logging instead of propagating failures.
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "failed to delete cache keys", "error", err, "keys", keys)
	}
}

// SafeInvalidatePattern invalidates a pattern, logging failures.
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "failed to invalidate cache pattern", "error", err, "pattern", pattern)
	}
}

// InvalidateModuleCache drops every cached view of a module after authoring
// writes, including dashboard aggregates that count its assignments.
func InvalidateModuleCache(ctx context.Context, cm *CacheManager, moduleID uint) {
	SafeDelete(ctx, cm.Module,
		fmt.Sprintf("id:%d", moduleID),
		fmt.Sprintf("details:%d", moduleID))
	SafeInvalidatePattern(ctx, cm.Module, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("module:%d:*", moduleID))
	SafeInvalidatePattern(ctx, cm.Stats, "overview:*")
}

// InvalidateAssignmentCache drops cached assignment state for a user after
// fan-out or evaluation writes.
func InvalidateAssignmentCache(ctx context.Context, cm *CacheManager, userID, moduleID uint) {
	SafeDelete(ctx, cm.Fast, fmt.Sprintf("assignment:%d:%d", userID, moduleID))
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("module:%d:*", moduleID))
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("user:%d:*", userID))
	SafeInvalidatePattern(ctx, cm.Stats, "overview:*")
}

// InvalidateUserCache drops cached user rows after admin edits.
func InvalidateUserCache(ctx context.Context, cm *CacheManager, userID uint) {
	SafeDelete(ctx, cm.User,
		fmt.Sprintf("id:%d", userID),
		fmt.Sprintf("email:%d", userID))
	SafeInvalidatePattern(ctx, cm.User, "list:*")
}
