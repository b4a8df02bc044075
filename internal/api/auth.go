package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"springsnow/internal/store"
)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	InviteCode string `json:"inviteCode" binding:"required"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserInfo 返回给前端的用户信息
type UserInfo struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

func userInfo(username string) UserInfo {
	avatar := ""
	if r := []rune(username); len(r) > 0 {
		avatar = strings.ToUpper(string(r[0]))
	}
	return UserInfo{Username: username, Avatar: avatar}
}

// Register 邀请码注册
// POST /api/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing required fields"})
		return
	}
	if req.InviteCode != h.cfg.Business.InviteCode {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid invite code"})
		return
	}

	if _, err := h.store.CreateUser(req.Username, req.Password); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Username already exists"})
			return
		}
		log.Error().Err(err).Str("username", req.Username).Msg("注册失败")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Registration failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": uuid.NewString(), "user": userInfo(req.Username)})
}

// Login 登录
// POST /api/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing required fields"})
		return
	}

	user, err := h.store.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid username or password"})
			return
		}
		log.Error().Err(err).Str("username", req.Username).Msg("登录失败")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Login failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": uuid.NewString(), "user": userInfo(user.Username)})
}
