package routes

import (
	"wall-system/controllers"
	"wall-system/middlewares"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes() *gin.Engine {

	r := gin.Default()
	// 配置跨域中间件
	corsConfig := cors.Config{
		AllowOrigins:     []string{"*"},                                       // 允许的域名，可以是前端地址
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}, // 允许的 HTTP 方法
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"}, // 允许的请求头
		AllowCredentials: true,                                                // 是否允许发送 cookies
	}

	// 使用 CORS 中间件
	r.Use(cors.New(corsConfig))
	r.GET("/ws", controllers.WSController)
	protected := r.Group("/api")

	protected.POST("/register", controllers.Register) // 绑定注册接口
	protected.POST("/login", controllers.Login)       // 绑定登录接口

	{
		protected.Use(middlewares.TokenAuthMiddleware())
		protected.GET("/userinfo", controllers.GetUserInfo)

		// 墙
		protected.POST("/wall", controllers.CreateWall)
		protected.GET("/walls", controllers.GetWalls)
		protected.POST("/wall/:wall_id/join", controllers.JoinWall)
		protected.GET("/wall/:wall_id/members", controllers.GetWallMembers)
		protected.GET("/wall/:wall_id/admirers", controllers.GetAdmirerCount)

		// 匿名表白
		protected.POST("/wall/:wall_id/confession", controllers.PostConfession)
		protected.GET("/wall/:wall_id/confessions", controllers.GetConfessions)

		// 暗恋
		protected.POST("/wall/:wall_id/crush", controllers.SetCrush)
		protected.DELETE("/wall/:wall_id/crush", controllers.RemoveCrush)
		protected.GET("/wall/:wall_id/crush", controllers.GetMyCrush)

		// 会话与消息（推送通道不可用时的兜底接口）
		protected.GET("/conversations", controllers.GetConversations)
		protected.POST("/conversation", controllers.CreateConversationHandler)
		protected.GET("/conversation/:conversation_id/messages", controllers.GetMessagesByConversationID)
		protected.POST("/conversation/:conversation_id/messages", controllers.SendMessage)
		protected.PUT("/conversation/:conversation_id/status", controllers.UpdateRelationshipStatus)
	}

	return r
}
