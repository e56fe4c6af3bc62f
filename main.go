package main

import (
	"log"
	"os"

	"wall-system/config"
	"wall-system/models"
	"wall-system/routes"
)

func main() {
	// 加载配置并初始化数据库
	config.LoadEnv()
	config.InitDB()
	// 自动迁移
	models.Migrate()
	// 注册路由
	r := routes.RegisterRoutes()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	// 启动服务
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
