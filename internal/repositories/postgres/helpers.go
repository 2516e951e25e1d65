package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/toeic-import-service/internal/repositories"
	"gorm.io/gorm"
)

const (
	defaultLimit = 20
	maxLimit     = 500
)

// notFound maps gorm's sentinel to the repository one
func notFound(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", entity, id, repositories.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", entity, err)
}

func paginate(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return query.Limit(limit).Offset(offset)
}

// orderBy only accepts whitelisted columns
func orderBy(query *gorm.DB, sortBy, sortOrder string, allowed map[string]bool, fallback string) *gorm.DB {
	column := fallback
	if allowed[sortBy] {
		column = sortBy
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}
	return query.Order(column + " " + direction)
}
