package db

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"time"

	"agora/internal/models"
	"agora/internal/rbac"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config returns the gorm settings shared by every dialect. TranslateError turns
// unique-constraint violations into gorm.ErrDuplicatedKey.
func Config() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         newLogger(os.Stdout),
	}
}

// newLogger reports slow queries and failures. A missing row is an expected outcome
// of most lookups and is not logged.
func newLogger(w io.Writer) logger.Interface {
	return logger.New(stdlog.New(w, "\r\n", stdlog.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// Open connects to Postgres, migrates the schema and seeds initial data.
func Open(dsn string, log *zap.Logger) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), Config())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("database connection established")

	if err := Migrate(conn); err != nil {
		return nil, err
	}
	log.Info("database migration completed")

	n, err := ReconcileLegacyRoles(conn)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		log.Info("reconciled legacy roles", zap.Int64("users", n))
	}

	if err := seedTopics(conn, log); err != nil {
		return nil, err
	}
	return conn, nil
}

func Migrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&models.User{},
		&models.Topic{},
		&models.Tag{},
		&models.Post{},
		&models.Comment{},
		&models.Vote{},
		&models.Bookmark{},
		&models.TrustLog{},
		&models.ContributorApplication{},
		&models.Notification{},
		&models.AISchedule{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// ReconcileLegacyRoles writes the canonical role for rows that only carry is_admin.
func ReconcileLegacyRoles(conn *gorm.DB) (int64, error) {
	var affected int64
	err := conn.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("(role IS NULL OR role = '') AND is_admin = ?", true).
			UpdateColumn("role", string(rbac.RoleSuperAdmin))
		if res.Error != nil {
			return res.Error
		}
		affected += res.RowsAffected

		res = tx.Model(&models.User{}).
			Where("role IS NULL OR role = ''").
			UpdateColumn("role", string(rbac.RoleUser))
		if res.Error != nil {
			return res.Error
		}
		affected += res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("reconcile legacy roles: %w", err)
	}
	return affected, nil
}

func seedTopics(conn *gorm.DB, log *zap.Logger) error {
	var count int64
	if err := conn.Model(&models.Topic{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Debug("topics already seeded, skipping")
		return nil
	}

	topics := []models.Topic{
		{Name: "General", Slug: "general", Description: "Anything that fits nowhere else"},
		{Name: "Procedures", Slug: "procedures", Description: "Experiences and questions about procedures"},
		{Name: "Recovery", Slug: "recovery", Description: "Recovery stories and advice"},
		{Name: "Ask an Expert", Slug: "ask-an-expert", Description: "Answers from verified contributors", ExpertOnly: true},
	}
	for _, topic := range topics {
		if err := conn.Create(&topic).Error; err != nil {
			log.Warn("failed to create topic", zap.String("slug", topic.Slug), zap.Error(err))
		}
	}
	log.Info("initial topics created")
	return nil
}
