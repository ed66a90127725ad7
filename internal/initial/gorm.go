package initial

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"Herald/internal/config"
	"Herald/internal/modules/notification/domain/entity"
	"Herald/pkg/zlog"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models is every table the service owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&entity.Notification{},
		&entity.Announcement{},
		&entity.PersonFollow{},
		&entity.UserInfo{},
	}
}

// NewGormDB opens the configured database and migrates it when asked to.
func NewGormDB(conf config.MysqlConfig) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gcfg := &gorm.Config{
		Logger: gormLogger,
		// 统一使用 UTC，游标比较依赖此约定
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	var dialector gorm.Dialector
	switch strings.ToLower(conf.Driver) {
	case "mysql":
		precision := 6
		dialector = mysql.New(mysql.Config{
			DSN:                      conf.MySQLDSN(),
			DefaultDatetimePrecision: &precision,
		})
	case "sqlite", "":
		dialector = sqlite.Open(conf.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Driver)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, err
	}

	if strings.ToLower(conf.Driver) != "mysql" {
		// sqlite allows one writer; a single connection avoids SQLITE_BUSY
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if conf.AutoMigrate {
		if err := db.AutoMigrate(Models()...); err != nil {
			return nil, err
		}
	}
	zlog.Info("database ready", zap.String("driver", conf.Driver))
	return db, nil
}

// NewTestDB opens a private in-memory sqlite database with every table
// migrated. name must be unique per test.
func NewTestDB(name string) (*gorm.DB, error) {
	return NewGormDB(config.MysqlConfig{
		Driver:      "sqlite",
		DSN:         fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		AutoMigrate: true,
	})
}
