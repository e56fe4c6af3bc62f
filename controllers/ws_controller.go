package controllers

import (
	"net/http"

	"wall-system/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSController 建立推送通道。
// 升级前用 query 里的 token + wall_id 鉴权（浏览器的 WebSocket 不方便带 header），
// 连接注册到 (墙, 用户) 下，一个用户可以同时开多条
func WSController(ctx *gin.Context) {
	tokenStr := ctx.Query("token")
	wallID := ctx.Query("wall_id")
	if tokenStr == "" || wallID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "token and wall_id are required"})
		return
	}

	claims, err := services.ParseToken(tokenStr)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	if !services.IsMember(wallID, claims.UserID) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this wall"})
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	client := services.NewClient(conn, uuid.New().String(), claims.UserID, wallID)
	services.Manager.Register(client)

	go client.ReadPump()
	go client.WritePump()
	go client.StartHeartbeat()
}
