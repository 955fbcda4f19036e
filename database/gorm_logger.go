package database

import (
	"fmt"
	"strings"
	"time"

	"clicker-battle/logger"

	gormlogger "gorm.io/gorm/logger"
)

// zapWriter feeds gorm's log lines into the service logger.
type zapWriter struct {
	log *logger.Logger
}

func (w zapWriter) Printf(format string, args ...any) {
	w.log.Warn("gorm: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// newGormLogger reports slow queries and failed statements. A lookup that finds no row
// is an expected outcome and is not logged.
func newGormLogger(log *logger.Logger) gormlogger.Interface {
	return gormlogger.New(zapWriter{log: log}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
