package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/cardroom/errs"
)

const accountKey = "account_id"

var errMissingToken = errs.New(errs.KindInvalidToken, "missing Authorization header")

func (s *GameServer) setupRoutes(api *gin.RouterGroup) {
	// ----------------------
	// Accounts and sessions
	// ----------------------
	api.POST("/accounts", s.register)
	api.GET("/accounts/:id", s.getAccount)
	api.POST("/sessions", s.login)

	auth := api.Group("", s.authenticate())
	auth.DELETE("/sessions", s.logout)
	auth.DELETE("/sessions/all", s.logoutAll)

	// ----------------------
	// Rooms
	// ----------------------
	api.GET("/rooms", s.listRooms)
	api.GET("/rooms/:id", s.getRoom)
	api.GET("/rooms/:id/history", s.roomHistory)
	auth.POST("/rooms", s.createRoom)
	auth.PATCH("/rooms/:id", s.updateRoom)
	auth.POST("/rooms/:id/join", s.joinRoom)
	auth.POST("/rooms/:id/leave", s.leaveRoom)
	auth.POST("/rooms/:id/ready", s.toggleReady)

	// ----------------------
	// Game
	// ----------------------
	auth.GET("/rooms/:id/game", s.getGame)
	auth.POST("/rooms/:id/game/start", s.startGame)
	auth.POST("/rooms/:id/game/play", s.play)
}

// token reads the Authorization header, with or without a Bearer prefix.
func token(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		header = strings.TrimSpace(header[7:])
	}
	return header
}

// authenticate resolves the session token and stores the account id.
func (s *GameServer) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		t := token(c)
		if t == "" {
			respondError(c, errMissingToken)
			return
		}
		accountID, err := s.auth.Resolve(c.Request.Context(), t)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(accountKey, accountID)
		c.Next()
	}
}

func accountOf(c *gin.Context) string {
	return c.GetString(accountKey)
}
