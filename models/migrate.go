package models

import (
	"log"

	"wall-system/config"
)

// Migrate 自动迁移所有表
func Migrate() {
	err := config.DB.AutoMigrate(
		&User{},
		&Wall{},
		&WallMember{},
		&Confession{},
		&CrushEdge{},
		&Conversation{},
		&Message{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
}
