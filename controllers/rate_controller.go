package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jheiberg/17peppertree/middleware"
	"github.com/jheiberg/17peppertree/models"
	"github.com/jheiberg/17peppertree/services"
	"github.com/jheiberg/17peppertree/utils"
)

// RatePayload is the rate creation body.
type RatePayload struct {
	RateType    string   `json:"rate_type"`
	Guests      int      `json:"guests"`
	Amount      float64  `json:"amount"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Description string  `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// RateUpdatePayload carries a partial rate edit; absent fields are left
// untouched.
type RateUpdatePayload struct {
	Amount      *float64 `json:"amount"`
	Description *string  `json:"description"`
	IsActive    *bool    `json:"is_active"`
	StartDate   *string  `json:"start_date"`
	EndDate     *string  `json:"end_date"`
}

// CalculatePayload is the quote request body.
type CalculatePayload struct {
	CheckinDate  string `json:"checkin_date"`
	CheckoutDate string `json:"checkout_date"`
	Guests       int    `json:"guests"`
}

// RateController serves rate listing, quoting, and administration.
type RateController struct {
	Rates *services.RateService
}

func NewRateController(svc *services.RateService) *RateController {
	return &RateController{Rates: svc}
}

func (ctrl *RateController) GetRates(c *gin.Context) {
	guests, _ := strconv.Atoi(c.Query("guests"))
	activeOnly := strings.ToLower(c.DefaultQuery("active", "true")) == "true"

	rates, err := ctrl.Rates.List(services.RateFilter{
		Type:       c.Query("type"),
		Guests:     guests,
		ActiveOnly: activeOnly,
		Date:       c.Query("date"),
	})
	if err != nil {
		respondServiceError(c, err, "Rate not found", "Failed to fetch rates")
		return
	}

	c.JSON(http.StatusOK, gin.H{"rates": rateMaps(rates)})
}

func (ctrl *RateController) GetBaseRates(c *gin.Context) {
	rates, err := ctrl.Rates.BaseRates()
	if err != nil {
		respondServiceError(c, err, "No base rates found", "Failed to fetch base rates")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rates": rateMaps(rates)})
}

func (ctrl *RateController) GetRate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rate, err := ctrl.Rates.Get(id)
	if err != nil {
		respondServiceError(c, err, "Rate not found", "Failed to fetch rate")
		return
	}
	c.JSON(http.StatusOK, rate.Map())
}

func (ctrl *RateController) Calculate(c *gin.Context) {
	var payload CalculatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	required := []struct {
		name  string
		empty bool
	}{
		{"checkin_date", payload.CheckinDate == ""},
		{"checkout_date", payload.CheckoutDate == ""},
		{"guests", payload.Guests == 0},
	}
	for _, f := range required {
		if f.empty {
			utils.JSONError(c, http.StatusBadRequest, "Missing required field: "+f.name)
			return
		}
	}

	quote, err := ctrl.Rates.Calculate(payload.CheckinDate, payload.CheckoutDate, payload.Guests)
	if err != nil {
		respondServiceError(c, err, "Base rate not found", "Failed to calculate rate")
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (ctrl *RateController) CreateRate(c *gin.Context) {
	var payload RatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if payload.RateType == "" || payload.Guests == 0 || payload.Amount == 0 {
		utils.JSONError(c, http.StatusBadRequest, "Missing required fields")
		return
	}

	rate, err := ctrl.Rates.Create(services.RateInput{
		RateType:    payload.RateType,
		Guests:      payload.Guests,
		Amount:      payload.Amount,
		StartDate:   payload.StartDate,
		EndDate:     payload.EndDate,
		Description: payload.Description,
		IsActive:    payload.IsActive,
	}, middleware.ActorEmail(c))
	if err != nil {
		respondServiceError(c, err, "Rate not found", "Failed to create rate")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Rate created successfully",
		"rate":    rate.Map(),
	})
}

func (ctrl *RateController) UpdateRate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var payload RateUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	rate, err := ctrl.Rates.Update(id, services.UpdateInput{
		Amount:      payload.Amount,
		Description: payload.Description,
		IsActive:    payload.IsActive,
		StartDate:   payload.StartDate,
		EndDate:     payload.EndDate,
	}, middleware.ActorEmail(c))
	if err != nil {
		respondServiceError(c, err, "Rate not found", "Failed to update rate")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Rate updated successfully",
		"rate":    rate.Map(),
	})
}

func (ctrl *RateController) DeleteRate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := ctrl.Rates.Delete(id, middleware.ActorEmail(c)); err != nil {
		respondServiceError(c, err, "Rate not found", "Failed to delete rate")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Rate deleted successfully"})
}

func rateMaps(rates []models.Rate) []gin.H {
	out := make([]gin.H, 0, len(rates))
	for i := range rates {
		out = append(out, rates[i].Map())
	}
	return out
}
