package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diet-coach/internal/service"
)

type MealHandler struct {
	logger    *zap.Logger
	meals     *service.MealService
	loc       *time.Location
	maxUpload int64
}

func NewMealHandler(logger *zap.Logger, meals *service.MealService, loc *time.Location, maxUpload int64) *MealHandler {
	return &MealHandler{logger: logger, meals: meals, loc: loc, maxUpload: maxUpload}
}

// Create maneja POST /meals (multipart: meal_type, description, notes, photo opcional).
func (h *MealHandler) Create(c *gin.Context) {
	session, _ := GetSession(c)
	input := service.MealInput{
		MealType:    c.PostForm("meal_type"),
		Description: c.PostForm("description"),
		Notes:       c.PostForm("notes"),
	}
	if _, err := c.FormFile("photo"); err == nil {
		data, filename, err := readUpload(c, "photo", h.maxUpload)
		if err != nil {
			h.logger.Warn("invalid meal photo upload", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo"})
			return
		}
		input.Photo = data
		input.PhotoName = filename
	}

	entry, err := h.meals.Log(c.Request.Context(), session, input, requestLocation(c, h.loc))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAuthRequired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		case errors.Is(err, service.ErrInvalidMeal):
			c.JSON(http.StatusBadRequest, gin.H{"error": "meal_type and description are required"})
		case errors.Is(err, service.ErrInvalidMealPhoto):
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrMealUploadFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not upload photo"})
		default:
			h.logger.Error("log meal failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not log meal"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"meal": entry})
}

// List maneja GET /meals?date=YYYY-MM-DD.
func (h *MealHandler) List(c *gin.Context) {
	session, _ := GetSession(c)
	meals, err := h.meals.List(c.Request.Context(), session, c.Query("date"), requestLocation(c, h.loc))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAuthRequired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		case errors.Is(err, service.ErrInvalidMealDate):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("list meals failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list meals"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"meals": meals})
}
