package postgres

import "gorm.io/gorm"

// SharedHelpers carries the handle each repository falls back to when the
// caller passes no transaction.
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// getDB prefers the caller's transaction over the base connection.
func (h *SharedHelpers) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return h.db
}

// applyPagination clamps page sizes. A negative limit disables pagination
// for internal full-scan callers such as fan-out backfills.
func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit < 0 {
		return query
	}
	if limit == 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return query.Limit(limit).Offset(offset)
}
