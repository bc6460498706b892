package handlers

import (
	"net/http"
	"strconv"

	"cbtportal/services"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	userService      *services.UserService
	dashboardService *services.DashboardService
}

func NewAdminHandler(userService *services.UserService, dashboardService *services.DashboardService) *AdminHandler {
	return &AdminHandler{
		userService:      userService,
		dashboardService: dashboardService,
	}
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.CreateUser(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *AdminHandler) Signup(c *gin.Context) {
	var req services.AdminSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.AdminSignup(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Signup received, awaiting approval",
		"user":    user,
	})
}

func (h *AdminHandler) ApproveUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.userService.Approve(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	overview, err := h.dashboardService.Overview()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}
