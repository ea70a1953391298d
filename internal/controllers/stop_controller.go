package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"route_planner/internal/geo"
	"route_planner/internal/middleware"
	"route_planner/internal/models"
	"route_planner/internal/repository"
	"route_planner/internal/stopflow"
	"route_planner/internal/storage"
)

// StopController serves the stop-creation workflow and the stop endpoints.
type StopController struct {
	Flow *stopflow.Flow
	Repo *repository.Repository
}

func NewStopController(flow *stopflow.Flow, repo *repository.Repository) *StopController {
	return &StopController{Flow: flow, Repo: repo}
}

type StopResponse struct {
	ID                    uint                    `json:"ID"`
	CreatedAt             time.Time               `json:"CreatedAt"`
	RouteID               uint                    `json:"route_id"`
	Sequence              int                     `json:"sequence"`
	StopType              string                  `json:"stop_type"`
	PartyMode             string                  `json:"party_mode"`
	CustomerID            *uint                   `json:"customer_id"`
	VendorID              *uint                   `json:"vendor_id"`
	Contact               models.ContactInfo      `json:"contact"`
	Address               models.AddressFields    `json:"address"`
	Lat                   *float64                `json:"lat"`
	Lng                   *float64                `json:"lng"`
	PlannedServiceMinutes *int                    `json:"planned_service_minutes"`
	WindowStart           string                  `json:"window_start"`
	WindowEnd             string                  `json:"window_end"`
	HardWindow            bool                    `json:"hard_window"`
	Notes                 string                  `json:"notes"`
	Requirement           *models.StopRequirement `json:"requirement,omitempty"`
	Payment               *models.StopPayment     `json:"payment,omitempty"`
	Photos                []models.StopPhoto      `json:"photos"`
}

func toStopResponse(s models.Stop) StopResponse {
	resp := StopResponse{
		ID:                    s.ID,
		CreatedAt:             s.CreatedAt,
		RouteID:               s.RouteID,
		Sequence:              s.Sequence,
		StopType:              s.StopType,
		PartyMode:             s.PartyMode,
		CustomerID:            s.CustomerID,
		VendorID:              s.VendorID,
		Contact:               s.Contact,
		Address:               s.Address,
		Lat:                   s.Lat,
		Lng:                   s.Lng,
		PlannedServiceMinutes: s.PlannedServiceMinutes,
		WindowStart:           s.WindowStart,
		WindowEnd:             s.WindowEnd,
		HardWindow:            s.HardWindow,
		Notes:                 s.Notes,
		Requirement:           s.Requirement,
		Payment:               s.Payment,
		Photos:                s.Photos,
	}
	if resp.Photos == nil {
		resp.Photos = []models.StopPhoto{}
	}
	// Older rows may only carry the WKB point.
	if resp.Lat == nil && len(s.Location) > 0 {
		if lat, lng, err := geo.PointFromWKB(s.Location); err == nil {
			resp.Lat, resp.Lng = &lat, &lng
		}
	}
	return resp
}

// writeFlowError maps workflow and repository errors to a status code.
func writeFlowError(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, stopflow.ErrPartyNotFound), errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, stopflow.ErrUnparseableAddress),
		errors.Is(err, stopflow.ErrUnknownPartyMode),
		errors.Is(err, stopflow.ErrUnsupportedPosition),
		errors.Is(err, stopflow.ErrUnknownCategory),
		errors.Is(err, stopflow.ErrSlotOutOfRange):
		status = http.StatusBadRequest
	case errors.Is(err, stopflow.ErrIncompleteIdentity), errors.Is(err, stopflow.ErrInvalidSchedule):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, stopflow.ErrIdentityMissing), errors.Is(err, stopflow.ErrSubmissionPending):
		status = http.StatusConflict
	}

	entry := logrus.WithError(err).WithField("path", c.FullPath())
	if status == http.StatusInternalServerError {
		entry.Error(op + ": failed")
		c.JSON(status, gin.H{"error": op + " failed"})
		return
	}
	entry.Warn(op + ": rejected")
	c.JSON(status, gin.H{"error": err.Error()})
}

// draftKey builds the draft key for the caller and route :id after checking
// the route belongs to the caller's business.
func (sc *StopController) draftKey(c *gin.Context) (stopflow.DraftKey, uint, bool) {
	userID, err := middleware.ClaimID(c, "user_id")
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
		return stopflow.DraftKey{}, 0, false
	}
	businessID, _ := middleware.ClaimID(c, "business_id")

	routeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return stopflow.DraftKey{}, 0, false
	}
	ok, err := sc.Repo.RouteOwnedBy(c, businessID, uint(routeID))
	if err != nil {
		logrus.WithError(err).Error("draftKey: route lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load route"})
		return stopflow.DraftKey{}, 0, false
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		return stopflow.DraftKey{}, 0, false
	}
	return stopflow.DraftKey{UserID: userID, RouteID: uint(routeID)}, businessID, true
}

func (sc *StopController) GetIdentity(c *gin.Context) {
	key, _, ok := sc.draftKey(c)
	if !ok {
		return
	}
	id, found, err := sc.Flow.Identity.Load(c, key)
	if err != nil {
		writeFlowError(c, "GetIdentity", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "No identity draft"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": id})
}

type identityInput struct {
	StopType stopflow.StopType `json:"stop_type"`
	stopflow.PartySelection
}

// PutIdentity resolves the party and address, then replaces stage 1.
func (sc *StopController) PutIdentity(c *gin.Context) {
	key, businessID, ok := sc.draftKey(c)
	if !ok {
		return
	}
	var input identityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := stopflow.Identity{
		RouteID:    key.RouteID,
		BusinessID: businessID,
		StopType:   input.StopType,
	}
	if err := sc.Flow.Identity.ResolveParty(c, &id, input.PartySelection); err != nil {
		writeFlowError(c, "PutIdentity", err)
		return
	}
	if err := sc.Flow.Identity.Save(c, key, id); err != nil {
		writeFlowError(c, "PutIdentity", err)
		return
	}
	saved, _, err := sc.Flow.Identity.Load(c, key)
	if err != nil {
		writeFlowError(c, "PutIdentity", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": saved})
}

func (sc *StopController) GetSchedule(c *gin.Context) {
	key, _, ok := sc.draftKey(c)
	if !ok {
		return
	}
	s, found, err := sc.Flow.Schedule.Load(c, key)
	if err != nil {
		writeFlowError(c, "GetSchedule", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "No schedule draft"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": s})
}

func (sc *StopController) PutSchedule(c *gin.Context) {
	key, _, ok := sc.draftKey(c)
	if !ok {
		return
	}
	var input stopflow.Schedule
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := sc.Flow.Schedule.Save(c, key, input)
	if err != nil {
		writeFlowError(c, "PutSchedule", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": s})
}

func (sc *StopController) GetPhotos(c *gin.Context) {
	key, _, ok := sc.draftKey(c)
	if !ok {
		return
	}
	slots, err := sc.Flow.Submission.Slots(c, key)
	if err != nil {
		writeFlowError(c, "GetPhotos", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": slots})
}

func (sc *StopController) AddPhotoSlot(c *gin.Context) {
	key, _, ok := sc.draftKey(c)
	if !ok {
		return
	}
	slots, err := sc.Flow.Submission.AddSlot(c, key, stopflow.PhotoCategory(c.Param("category")))
	if err != nil {
		writeFlowError(c, "AddPhotoSlot", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"photos": slots})
}

func (sc *StopController) RemovePhotoSlot(c *gin.Context) {
	key, _, ok := sc.draftKey(c)
	if !ok {
		return
	}
	slot, err := strconv.Atoi(c.Param("slot"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid slot"})
		return
	}
	slots, err := sc.Flow.Submission.RemoveSlot(c, key, stopflow.PhotoCategory(c.Param("category")), slot)
	if err != nil {
		writeFlowError(c, "RemovePhotoSlot", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": slots})
}

// uploadedFile is the ImageSource for a multipart upload; the device already
// captured the image, so Capture only hands back the buffered asset.
type uploadedFile struct {
	asset stopflow.Asset
}

func (u uploadedFile) Capture(ctx context.Context) (stopflow.Asset, error) {
	return u.asset, ctx.Err()
}

// AttachPhoto stores the multipart "file" in a photo slot.
func (sc *StopController) AttachPhoto(c *gin.Context) {
	key, _, ok := sc.draftKey(c)
	if !ok {
		return
	}
	slot, err := strconv.Atoi(c.Param("slot"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid slot"})
		return
	}
	source := stopflow.PhotoSource(c.DefaultPostForm("source", string(stopflow.SourceGallery)))
	if !source.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source must be camera or gallery"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fh.Size > storage.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	data, err := io.ReadAll(io.LimitReader(f, storage.MaxUploadSize+1))
	f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}

	asset := storage.BytesAsset(fh.Filename, data)
	if !strings.HasPrefix(asset.MimeType, "image/") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "file is not an image"})
		return
	}

	category := stopflow.PhotoCategory(c.Param("category"))
	slots, err := sc.Flow.Submission.AttachPhoto(c, key, category, slot, source, uploadedFile{asset: asset})
	if err != nil {
		writeFlowError(c, "AttachPhoto", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": slots})
}

// Submit performs the ordered remote writes and clears the draft.
func (sc *StopController) Submit(c *gin.Context) {
	key, _, ok := sc.draftKey(c)
	if !ok {
		return
	}
	res, err := sc.Flow.Submission.Submit(c, key, key.UserID)
	if err != nil {
		writeFlowError(c, "Submit", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"result": res})
}

func (sc *StopController) Discard(c *gin.Context) {
	key, _, ok := sc.draftKey(c)
	if !ok {
		return
	}
	if err := sc.Flow.Submission.Discard(c, key); err != nil {
		writeFlowError(c, "Discard", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Draft discarded"})
}

// ListStops returns the stops of route :id in sequence order.
func (sc *StopController) ListStops(c *gin.Context) {
	key, _, ok := sc.draftKey(c)
	if !ok {
		return
	}
	stops, err := sc.Repo.ListStops(c, key.RouteID)
	if err != nil {
		writeFlowError(c, "ListStops", err)
		return
	}
	out := make([]StopResponse, 0, len(stops))
	for _, s := range stops {
		out = append(out, toStopResponse(s))
	}
	c.JSON(http.StatusOK, gin.H{"stops": out})
}

// ownedStop loads :id and checks it belongs to the caller's business.
func (sc *StopController) ownedStop(c *gin.Context) (models.Stop, bool) {
	businessID, _ := middleware.ClaimID(c, "business_id")
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid stop ID"})
		return models.Stop{}, false
	}
	stop, err := sc.Repo.GetStop(c, uint(id))
	if err == nil && stop.BusinessID != businessID {
		err = repository.ErrNotFound
	}
	if err != nil {
		writeFlowError(c, "GetStop", err)
		return models.Stop{}, false
	}
	return stop, true
}

func (sc *StopController) UpdateStop(c *gin.Context) {
	stop, ok := sc.ownedStop(c)
	if !ok {
		return
	}
	var input repository.StopUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.StopType != nil && !stopflow.StopType(*input.StopType).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid stop_type"})
		return
	}
	for _, t := range []*string{input.WindowStart, input.WindowEnd} {
		if t != nil && *t != "" && !stopflow.ValidClock(*t) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Window times must be HH:mm"})
			return
		}
	}

	updated, err := sc.Repo.UpdateStop(c, stop.ID, input)
	if err != nil {
		writeFlowError(c, "UpdateStop", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stop": toStopResponse(updated)})
}

func (sc *StopController) DeleteStop(c *gin.Context) {
	stop, ok := sc.ownedStop(c)
	if !ok {
		return
	}
	if err := sc.Repo.DeleteStop(c, stop.ID); err != nil {
		writeFlowError(c, "DeleteStop", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stop deleted successfully"})
}

// Autocomplete returns address suggestions for ?q=.
func (sc *StopController) Autocomplete(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"suggestions": sc.Flow.Identity.Suggest(c, c.Query("q"))})
}

// Geocode resolves ?q= to coordinates.
func (sc *StopController) Geocode(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	if sc.Flow.Identity.Addresses == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Geocoding is not configured"})
		return
	}
	coords, err := sc.Flow.Identity.Addresses.Geocode(c, q)
	if err != nil {
		logrus.WithError(err).WithField("q", q).Warn("Geocode: lookup failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Address could not be geocoded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coordinates": coords})
}
