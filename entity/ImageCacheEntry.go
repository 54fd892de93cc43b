package entity

import "time"

type ImageCacheEntry struct {
	Key          string    `gorm:"column:cache_key;primaryKey;size:64" json:"key"`
	URI          string    `gorm:"not null" json:"uri"`
	LocalPath    string    `gorm:"not null" json:"localPath"`
	Timestamp    time.Time `json:"timestamp"` // when the file was written
	LastAccessAt time.Time `gorm:"index" json:"lastAccessAt"`
	Size         int64     `json:"size"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Quality      int       `json:"quality"`
}
