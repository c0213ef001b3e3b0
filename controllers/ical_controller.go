package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jheiberg/17peppertree/services"
	"github.com/jheiberg/17peppertree/utils"
)

type ImportPayload struct {
	ICalURL  string `json:"ical_url"`
	Platform string `json:"platform"`
}

// ICalController serves the calendar feed endpoints used for syncing
// with external booking platforms.
type ICalController struct {
	ICal *services.ICalService
}

func NewICalController(svc *services.ICalService) *ICalController {
	return &ICalController{ICal: svc}
}

func (ctrl *ICalController) Export(c *gin.Context) {
	feed, err := ctrl.ICal.Export()
	if err != nil {
		respondServiceError(c, err, "Not found", "Failed to generate calendar feed")
		return
	}

	c.Header("Content-Disposition", "attachment; filename=peppertree-bookings.ics")
	c.Header("Cache-Control", "no-cache, must-revalidate")
	c.Header("Expires", "0")
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(feed))
}

func (ctrl *ICalController) Import(c *gin.Context) {
	var payload ImportPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := ctrl.ICal.Import(payload.ICalURL, payload.Platform)
	if err != nil {
		respondServiceError(c, err, "Not found", "Failed to import calendar")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "iCal import completed",
		"imported": result.Imported,
		"skipped":  result.Skipped,
	})
}

func (ctrl *ICalController) Info(c *gin.Context) {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	baseURL := scheme + "://" + c.Request.Host

	c.JSON(http.StatusOK, gin.H{
		"export_url": baseURL + "/api/ical/bookings.ics",
		"instructions": gin.H{
			"airbnb":      "Go to Calendar > Availability Settings > Import Calendar > Paste the export URL",
			"booking_com": "Go to Calendar > Import/Export > Import Calendar > Paste the export URL",
			"vrbo":        "Go to Calendar > Sync Calendar > Import Calendar > Paste the export URL",
			"general":     "Copy the export URL and paste it into the calendar import section of any booking platform",
		},
		"features": []string{
			"Automatically syncs confirmed and approved bookings",
			"Updates every time the feed is accessed",
			"Compatible with all major booking platforms",
			"Includes booking details and guest information",
		},
	})
}
