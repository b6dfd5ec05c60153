// Package dbtest opens sqlite databases shaped like the Postgres schema for
// repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const participantsDDL = `
CREATE TABLE IF NOT EXISTS participants (
  id TEXT PRIMARY KEY,
  full_name TEXT NOT NULL,
  phone TEXT NOT NULL,
  email TEXT NOT NULL,
  city TEXT NOT NULL,
  age TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  payment_amount NUMERIC NOT NULL,
  payment_inv_id INTEGER UNIQUE,
  promo_code TEXT,
  telegram_invite_link TEXT,
  telegram_invite_created_at DATETIME,
  telegram_invite_used INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`

const promoCodesDDL = `
CREATE TABLE IF NOT EXISTS promo_codes (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  discount_amount NUMERIC,
  discount_percent INTEGER,
  is_active INTEGER NOT NULL DEFAULT 1,
  expires_at DATETIME,
  usage_limit INTEGER,
  used_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`

// Open returns an isolated in-memory database with the enrollment tables.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	for _, ddl := range []string{participantsDDL, promoCodesDDL} {
		require.NoError(t, db.Exec(ddl).Error)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}
