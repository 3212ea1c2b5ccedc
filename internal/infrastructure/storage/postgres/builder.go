package postgres

import (
	"github.com/Masterminds/squirrel"
)

// Builder returns a squirrel statement builder using $n placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Page applies limit and offset. A non-positive limit means no limit.
func Page(q squirrel.SelectBuilder, limit, offset int) squirrel.SelectBuilder {
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}
	return q
}
