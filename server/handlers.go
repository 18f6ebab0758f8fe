package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/cardroom/room"
)

type registerRequest struct {
	Login       string `json:"login" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type joinRequest struct {
	Password string `json:"password"`
}

type playRequest struct {
	// CardIndex is omitted to draw instead of playing.
	CardIndex *int `json:"card_index"`
}

// register creates an account and returns it with a fresh token.
func (s *GameServer) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	account, token, err := s.accounts.Register(c.Request.Context(), req.Login, req.Password, req.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"account": account, "token": token})
}

func (s *GameServer) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	token, err := s.accounts.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

func (s *GameServer) logout(c *gin.Context) {
	if err := s.auth.Logout(c.Request.Context(), token(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *GameServer) logoutAll(c *gin.Context) {
	if err := s.auth.LogoutAll(c.Request.Context(), token(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// getAccount looks an account up by login or id, with its stats.
func (s *GameServer) getAccount(c *gin.Context) {
	account, err := s.accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// listRooms pages through public rooms with ?after=<id>&limit=<n>.
func (s *GameServer) listRooms(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, err)
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, s.rooms.ListPublic(c.Query("after"), limit))
}

func (s *GameServer) getRoom(c *gin.Context) {
	snap, err := s.rooms.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *GameServer) roomHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	records, err := s.accounts.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *GameServer) createRoom(c *gin.Context) {
	var settings room.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		badRequest(c, err)
		return
	}
	snap, err := s.rooms.Create(accountOf(c), settings)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (s *GameServer) updateRoom(c *gin.Context) {
	var update room.SettingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, err)
		return
	}
	snap, err := s.rooms.Update(accountOf(c), c.Param("id"), update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *GameServer) joinRoom(c *gin.Context) {
	var req joinRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	snap, err := s.rooms.Join(accountOf(c), c.Param("id"), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *GameServer) leaveRoom(c *gin.Context) {
	if err := s.rooms.Leave(accountOf(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *GameServer) toggleReady(c *gin.Context) {
	view, err := s.rooms.ToggleReady(accountOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *GameServer) getGame(c *gin.Context) {
	view, err := s.rooms.GameView(accountOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *GameServer) startGame(c *gin.Context) {
	snap, err := s.rooms.StartGame(accountOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

// play plays {"card_index": n}, or draws when the body has no index.
func (s *GameServer) play(c *gin.Context) {
	var req playRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	snap, err := s.rooms.Play(accountOf(c), c.Param("id"), req.CardIndex)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
