// Package migration owns the database schema. Each migration carries a frozen copy
// of the structs it creates so later model changes cannot alter past steps.
package migration

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

type initialUser struct {
	ID        uint      `gorm:"primaryKey"`
	Username  string    `gorm:"size:80;not null;uniqueIndex"`
	Password  string    `gorm:"size:255;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (initialUser) TableName() string { return "user" }

type initialChatHistory struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index:idx_chat_history_user_created,priority:1"`
	Message   string    `gorm:"type:text;not null"`
	Response  string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_chat_history_user_created,priority:2"`

	User *initialUser `gorm:"foreignKey:UserID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

func (initialChatHistory) TableName() string { return "chat_history" }

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "202503081452_initial",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&initialUser{}, &initialChatHistory{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&initialChatHistory{}, &initialUser{})
			},
		},
	}
}

// New returns the migrator for db.
func New(db *gorm.DB) *gormigrate.Gormigrate {
	return gormigrate.New(db, gormigrate.DefaultOptions, migrations())
}

// Up applies every pending migration.
func Up(db *gorm.DB) error {
	return New(db).Migrate()
}
