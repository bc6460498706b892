package models

import "time"

// KVEntry is a single keyed blob, the SQL stand-in for a device key-value store.
type KVEntry struct {
	Key       string    `gorm:"column:blob_key;primaryKey;size:191"`
	Value     []byte    `gorm:"not null"`
	UpdatedAt time.Time
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
