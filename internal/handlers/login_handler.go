package handlers

import (
	"net/http"

	"go-storefront/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var input LoginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	var owner models.StoreOwner
	if err := h.db.Where("email = ?", input.Email).First(&owner).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	// Compare the input password with the hash from DB
	if err := bcrypt.CompareHashAndPassword([]byte(owner.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	// The token carries the owner's store so every later request is scoped.
	var store models.Store
	if err := h.db.Where("owner_id = ?", owner.ID).First(&store).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No store for this account"})
		return
	}

	token, err := h.auth.GenerateToken(owner.ID, store.ID, owner.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"role":     owner.Role,
		"store_id": store.ID,
		"email":    owner.Email,
	})
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Phone     string `json:"phone"`
	StoreName string `json:"store_name" binding:"required"`
	StoreSlug string `json:"store_slug" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var input RegisterRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	owner := models.StoreOwner{
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Role:         "owner",
		Phone:        input.Phone,
	}
	if err := h.db.Create(&owner).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Account likely already exists"})
		return
	}

	store := models.Store{
		OwnerID: owner.ID,
		Name:    input.StoreName,
		Slug:    input.StoreSlug,
	}
	if err := h.db.Create(&store).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Store slug is taken"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Store created successfully", "store_id": store.ID})
}
