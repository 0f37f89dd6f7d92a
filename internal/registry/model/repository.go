package model

import "time"

// Repository is an entry of the repository registry side-table.
// Matches the repositories table schema.
type Repository struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"                             json:"-"`
	Name      string    `gorm:"column:name;size:255;not null;uniqueIndex:uq_repositories_name" json:"name"`
	Team      *string   `gorm:"column:team;size:1024"                                          json:"team,omitempty"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"                         json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at;not null"                                     json:"-"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"                                     json:"-"`
}

// TableName specifies the table name for GORM.
func (Repository) TableName() string {
	return "repositories"
}
