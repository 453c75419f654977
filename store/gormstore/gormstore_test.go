package gormstore

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ssaemtalk/server/store"
	"github.com/ssaemtalk/server/store/storetest"
)

// newTestStore opens a private in-memory sqlite database per test.
func newTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db)
}

func TestStore(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestContainsPattern(t *testing.T) {
	cases := map[string]string{
		"수업":   "%수업%",
		"100%": "%100!%%",
		"a_b":  "%a!_b%",
		"Hi!":  "%hi!!%",
	}
	for in, want := range cases {
		if got := containsPattern(in); got != want {
			t.Errorf("containsPattern(%q) = %q, want %q", in, got, want)
		}
	}
}
