package logging

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

type contextKey struct{}

// CreateContextWithOperationID tags ctx so entries from WithContext carry
// the run's correlation id
func CreateContextWithOperationID(ctx context.Context, operationID string) context.Context {
	return context.WithValue(ctx, contextKey{}, operationID)
}

func GetOperationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.logger.WithContext(ctx)
	if id := GetOperationIDFromContext(ctx); id != "" {
		entry = entry.WithField("operation_id", id)
	}
	return entry
}

// SanitizeDSN masks the password of a MySQL DSN (user:pass@tcp(host)/db).
// The password may itself contain '@', so the last one separates the
// credentials.
func SanitizeDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	user, _, hasPass := strings.Cut(dsn[:at], ":")
	if !hasPass {
		return dsn
	}
	return user + ":***" + dsn[at:]
}
