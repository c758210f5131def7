// Package storage persists jobs, triggers and trigger states with GORM.
//
// GormStore works with any GORM dialect. Triggers are stored through
// trigger.Snapshot and job data as typed JSON, so a restored trigger computes
// the same fire times as the one that was stored.
package storage
