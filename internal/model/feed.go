package model

import "time"

// Feed 文章来源 (RSS/Atom), 抓取到的条目会作为待评分文章入库
type Feed struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"size:255;not null" json:"name" binding:"required"`
	URL           string     `gorm:"size:500;uniqueIndex;not null" json:"url" binding:"required,url"`
	Enabled       bool       `gorm:"default:true" json:"enabled"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
