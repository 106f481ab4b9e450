// Package db provides a sqlite-backed ledger backend via gorm.
package db

import (
	"encoding/json"
	"errors"

	"golang.org/x/xerrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/govm-net/sandbox/storage"
)

// DBEntry represents a ledger entry row.
type DBEntry struct {
	gorm.Model
	LedgerKey string `gorm:"column:ledger_key;not null;unique;index;size:140"`
	Value     []byte `gorm:"column:value;type:blob;not null"`
}

// TableName specifies the table name for DBEntry.
func (DBEntry) TableName() string {
	return "ledger_entries"
}

// Backend is a gorm/sqlite ledger backend.
type Backend struct {
	db *gorm.DB
}

// Open opens (and migrates) a sqlite ledger database at the given
// path.
func Open(path string) (*Backend, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to open ledger database: %v", err)
	}
	if err := gdb.AutoMigrate(&DBEntry{}); err != nil {
		return nil, xerrors.Errorf("failed to migrate ledger schema: %v", err)
	}
	return &Backend{db: gdb}, nil
}

// Get returns the entry for the key.
func (b *Backend) Get(k storage.Key) (storage.Entry, bool, error) {
	var row DBEntry
	err := b.db.Where("ledger_key = ?", k.String()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.Entry{}, false, nil
	}
	if err != nil {
		return storage.Entry{}, false, xerrors.Errorf("failed to query ledger entry: %v", err)
	}
	var e storage.Entry
	if err := json.Unmarshal(row.Value, &e); err != nil {
		return storage.Entry{}, false, xerrors.Errorf("failed to decode ledger entry: %v", err)
	}
	return e, true, nil
}

// Put stores an entry, replacing any previous value for the key.
func (b *Backend) Put(k storage.Key, e storage.Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return xerrors.Errorf("failed to encode ledger entry: %v", err)
	}
	row := DBEntry{LedgerKey: k.String(), Value: raw}
	err = b.db.Where("ledger_key = ?", k.String()).
		Assign(DBEntry{LedgerKey: k.String(), Value: raw}).
		FirstOrCreate(&row).Error
	if err != nil {
		return xerrors.Errorf("failed to store ledger entry: %v", err)
	}
	return nil
}

// Close closes the underlying database.
func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return xerrors.Errorf("failed to access raw database: %v", err)
	}
	return sqlDB.Close()
}
