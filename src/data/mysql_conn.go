package data

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stake-plus/simd-tracker/src/logging"
)

// ConnectMySQL opens a gorm DB with sane defaults.
func ConnectMySQL(dsn string, log *zap.Logger) (*gorm.DB, error) {
	dsn = ensureParam(dsn, "parseTime", "true")
	dsn = ensureParam(dsn, "loc", "UTC")
	if !strings.Contains(dsn, "charset=") {
		dsn = ensureParam(dsn, "charset", "utf8mb4")
		dsn = ensureParam(dsn, "collation", "utf8mb4_unicode_ci")
	}
	return gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger(log), NowFunc: utcNow})
}

// ConnectSQLite opens a SQLite database. Used for local runs and tests.
func ConnectSQLite(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger(log), NowFunc: utcNow})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// A single connection keeps in-memory databases alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Connect picks the driver by name ("mysql" or "sqlite").
func Connect(driver, dsn string, log *zap.Logger) (*gorm.DB, error) {
	if strings.EqualFold(driver, "sqlite") {
		return ConnectSQLite(dsn, log)
	}
	return ConnectMySQL(dsn, log)
}

func gormLogger(log *zap.Logger) logger.Interface {
	return logger.New(
		zap.NewStdLog(logging.OrNop(log).Named("gorm")),
		logger.Config{SlowThreshold: time.Second, LogLevel: logger.Warn, IgnoreRecordNotFoundError: true, Colorful: false},
	)
}

func utcNow() time.Time { return time.Now().UTC() }

func ensureParam(dsn, key, val string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + val
}
