package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

// CrushLockDuration 暗恋设置后多久才允许撤回，默认 4 小时
var CrushLockDuration = 4 * time.Hour

// AllowLockBypass 是否允许请求携带 bypass_lock 跳过撤回锁定（仅测试环境打开）
var AllowLockBypass = false

// LoadEnv 加载 .env 并解析应用配置
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}
	if h := os.Getenv("CRUSH_LOCK_HOURS"); h != "" {
		if v, err := strconv.Atoi(h); err == nil && v >= 0 {
			CrushLockDuration = time.Duration(v) * time.Hour
		}
	}
	if os.Getenv("ALLOW_LOCK_BYPASS") == "true" {
		AllowLockBypass = true
	}
}

// InitDB 初始化数据库连接
func InitDB() {
	dsn := os.Getenv("DSN")
	if dsn == "" {
		dsn = "root:root@tcp(127.0.0.1:3306)/wall_system?charset=utf8mb4&parseTime=True&loc=Local"
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	DB = db
	fmt.Println("Database connected")
}
