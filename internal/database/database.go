package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"draw-service/internal/config"
	"draw-service/internal/logger"
	"draw-service/internal/models"
)

var DB *gorm.DB

// Open returns a gorm handle for the configured driver.
func Open(cfg config.DBConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "draw.db"
		}
		dialector = sqlite.Open(dsn)
	case "mysql", "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
				cfg.User,
				cfg.Password,
				cfg.Host,
				cfg.Port,
				cfg.Name,
			)
		}
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite serialises writers; one connection avoids SQLITE_BUSY under load
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func Connect(cfg config.DBConfig) {
	var err error
	DB, err = Open(cfg)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Info("Database connection established")
}

// AutoMigrate creates the schema and seeds the default task list.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.TransferDetail{},
		&models.Draw{},
		&models.Winner{},
		&models.Entry{},
		&models.TaskDefinition{},
		&models.DailyTaskProgress{},
	)
	if err != nil {
		return err
	}
	return SeedTasks(db)
}

// SeedTasks inserts the default task definitions, leaving existing rows alone.
func SeedTasks(db *gorm.DB) error {
	tasks := models.DefaultTasks()
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&tasks).Error
}

func Migrate() {
	if err := AutoMigrate(DB); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	logger.Info("Database migration completed")
}
