// Package store holds every SQL statement. Functions accept a db.DBTX so the
// workflow layer can compose them inside one transaction. Getters return
// (nil, nil) when the row does not exist.
package store

import (
	"strings"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/db"
)

type scanner interface {
	Scan(dest ...any) error
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// conflictOr turns a uniqueness violation into a Conflict error and wraps
// anything else as an infrastructure failure.
func conflictOr(err error, conflict string, wrap func(error) error) error {
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("%s", conflict)
	}
	return wrap(err)
}
