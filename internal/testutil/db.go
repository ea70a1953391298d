// Package testutil provides throwaway databases for tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"route_planner/internal/config"
	"route_planner/internal/models"
)

// NewDB returns a migrated in-memory SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// SQLite allows one writer; concurrent writes queue on the pool.
	sqlDB.SetMaxOpenConns(1)
	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// SeedRoute creates a business and one empty route owned by it.
func SeedRoute(t *testing.T, db *gorm.DB) (models.Business, models.Route) {
	t.Helper()
	biz := models.Business{Name: "Acme Logistics", Email: uuid.NewString() + "@acme.test"}
	if err := db.Create(&biz).Error; err != nil {
		t.Fatalf("create business: %v", err)
	}
	route := models.Route{Name: "Tuesday North", BusinessID: biz.ID}
	if err := db.Create(&route).Error; err != nil {
		t.Fatalf("create route: %v", err)
	}
	return biz, route
}
