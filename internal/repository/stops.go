package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"route_planner/internal/geo"
	"route_planner/internal/models"
	"route_planner/internal/stopflow"
)

// CountStops returns the number of live stops on a route.
func (r *Repository) CountStops(ctx context.Context, routeID uint) (int, error) {
	var n int64
	if err := r.conn(ctx).Model(&models.Stop{}).Where("route_id = ?", routeID).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// StopExists reports whether stop id is still live.
func (r *Repository) StopExists(ctx context.Context, id uint) (bool, error) {
	var n int64
	if err := r.conn(ctx).Model(&models.Stop{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListStops returns the stops of a route in sequence order with their children.
func (r *Repository) ListStops(ctx context.Context, routeID uint) ([]models.Stop, error) {
	var stops []models.Stop
	err := r.conn(ctx).
		Preload("Requirement").
		Preload("Payment").
		Preload("Photos").
		Where("route_id = ?", routeID).
		Order("sequence ASC").
		Find(&stops).Error
	return stops, err
}

// GetStop loads one stop with its children.
func (r *Repository) GetStop(ctx context.Context, id uint) (models.Stop, error) {
	var stop models.Stop
	err := r.conn(ctx).
		Preload("Requirement").
		Preload("Payment").
		Preload("Photos").
		First(&stop, id).Error
	return stop, notFound(err)
}

// CreateStop inserts a stop at p.Sequence, shifting later stops down so the
// route's sequence stays contiguous. Sequences past the end are clamped.
func (r *Repository) CreateStop(ctx context.Context, p stopflow.StopPayload) (uint, error) {
	stop := stopFromPayload(p)
	if stop.Lat != nil && stop.Lng != nil {
		loc, err := geo.PointWKB(*stop.Lat, *stop.Lng)
		if err != nil {
			logrus.WithError(err).Warn("CreateStop: dropping invalid coordinates")
			stop.Lat, stop.Lng = nil, nil
		} else {
			stop.Location = loc
		}
	}

	err := r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var route models.Route
		if err := tx.Select("id", "business_id").First(&route, p.RouteID).Error; err != nil {
			return fmt.Errorf("route %d: %w", p.RouteID, notFound(err))
		}
		// A sparse submission has no identity; the route knows the owner.
		stop.BusinessID = route.BusinessID

		var count int64
		if err := tx.Model(&models.Stop{}).Where("route_id = ?", p.RouteID).Count(&count).Error; err != nil {
			return err
		}
		stop.Sequence = clampSequence(p.Sequence, int(count)+1)

		if err := shiftFrom(tx, p.RouteID, stop.Sequence, 1); err != nil {
			return err
		}
		return tx.Create(&stop).Error
	})
	if err != nil {
		return 0, err
	}
	return stop.ID, nil
}

// StopUpdate is a partial update; nil fields are left unchanged.
type StopUpdate struct {
	Sequence              *int                  `json:"sequence"`
	StopType              *string               `json:"stop_type"`
	Address               *models.AddressFields `json:"address"`
	Lat                   *float64              `json:"lat"`
	Lng                   *float64              `json:"lng"`
	PlannedServiceMinutes *int                  `json:"planned_service_minutes"`
	WindowStart           *string               `json:"window_start"`
	WindowEnd             *string               `json:"window_end"`
	HardWindow            *bool                 `json:"hard_window"`
	Notes                 *string               `json:"notes"`
}

// UpdateStop applies u to stop id. Moving a stop reorders the stops between
// its old and new sequence.
func (r *Repository) UpdateStop(ctx context.Context, id uint, u StopUpdate) (models.Stop, error) {
	var stop models.Stop
	err := r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&stop, id).Error; err != nil {
			return notFound(err)
		}

		if u.Sequence != nil && *u.Sequence != stop.Sequence {
			var count int64
			if err := tx.Model(&models.Stop{}).Where("route_id = ?", stop.RouteID).Count(&count).Error; err != nil {
				return err
			}
			to := clampSequence(*u.Sequence, int(count))
			if err := moveStop(tx, stop.RouteID, stop.Sequence, to); err != nil {
				return err
			}
			stop.Sequence = to
		}
		if u.StopType != nil {
			stop.StopType = *u.StopType
		}
		if u.Address != nil {
			stop.Address = *u.Address
		}
		if u.Lat != nil && u.Lng != nil {
			loc, err := geo.PointWKB(*u.Lat, *u.Lng)
			if err != nil {
				return err
			}
			stop.Lat, stop.Lng, stop.Location = u.Lat, u.Lng, loc
		}
		if u.PlannedServiceMinutes != nil {
			stop.PlannedServiceMinutes = u.PlannedServiceMinutes
		}
		if u.WindowStart != nil {
			stop.WindowStart = *u.WindowStart
		}
		if u.WindowEnd != nil {
			stop.WindowEnd = *u.WindowEnd
		}
		if u.HardWindow != nil {
			stop.HardWindow = *u.HardWindow
		}
		if u.Notes != nil {
			stop.Notes = *u.Notes
		}
		return tx.Save(&stop).Error
	})
	return stop, err
}

// DeleteStop removes a stop with its children and closes the sequence gap.
func (r *Repository) DeleteStop(ctx context.Context, id uint) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var stop models.Stop
		if err := tx.First(&stop, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Select(clause.Associations).Delete(&stop).Error; err != nil {
			return err
		}
		return shiftFrom(tx, stop.RouteID, stop.Sequence+1, -1)
	})
}

// UpsertRequirements stores the checklist of a stop, reading each flag
// through the alias adapter.
func (r *Repository) UpsertRequirements(ctx context.Context, p stopflow.RequirementsPayload) error {
	raw := make(map[string]any, len(p.Flags))
	for k, v := range p.Flags {
		raw[k] = v
	}
	flags := stopflow.DecodeRequirements(raw)
	rawJSON, err := json.Marshal(p.Flags)
	if err != nil {
		return err
	}

	req := models.StopRequirement{
		StopID:             p.StopID,
		GiveInvoice:        flags.GiveInvoice,
		SignatureRequired:  flags.SignatureRequired,
		PhotosRequired:     flags.PhotosRequired,
		ChecklistRequired:  flags.ChecklistRequired,
		TwoPersonRequired:  flags.TwoPersonRequired,
		LiftgateNeeded:     flags.LiftgateNeeded,
		DockAppointment:    flags.DockAppointment,
		IDCheck:            flags.IDCheck,
		TemperatureControl: flags.TemperatureControl,
		Contactless:        flags.Contactless,
		ContactBefore:      flags.ContactBefore,
		PrintName:          flags.PrintName,
		AccessCode:         p.AccessCode,
		AccessInfo:         p.AccessInfo,
		RawFlags:           rawJSON,
	}

	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireStop(tx, p.StopID); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "stop_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"updated_at", "give_invoice", "signature_required", "photos_required",
				"checklist_required", "two_person_required", "liftgate_needed",
				"dock_appointment", "id_check", "temperature_control", "contactless",
				"contact_before", "print_name", "access_code", "access_info", "raw_flags",
			}),
		}).Create(&req).Error
	})
}

// UpsertPayment stores the payment expectation of a stop.
func (r *Repository) UpsertPayment(ctx context.Context, p stopflow.PaymentPayload) error {
	pay := models.StopPayment{
		StopID:    p.StopID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Method:    p.Method,
		Reference: p.Reference,
		Notes:     p.Notes,
		Status:    p.Status,
	}
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireStop(tx, p.StopID); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "stop_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"updated_at", "amount", "currency", "method", "reference", "notes", "status",
			}),
		}).Create(&pay).Error
	})
}

// CreatePhoto records one uploaded photo for a stop.
func (r *Repository) CreatePhoto(ctx context.Context, p stopflow.PhotoPayload) error {
	photo := models.StopPhoto{
		StopID:     p.StopID,
		UploadedBy: p.UploadedBy,
		Category:   string(p.Category),
		URL:        p.URL,
		MimeType:   p.MimeType,
		Size:       p.Size,
		Width:      p.Width,
		Height:     p.Height,
	}
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireStop(tx, p.StopID); err != nil {
			return err
		}
		return tx.Create(&photo).Error
	})
}

func requireStop(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&models.Stop{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("stop %d: %w", id, ErrNotFound)
	}
	return nil
}

// shiftFrom adds delta to the sequence of every stop on the route at or
// after seq.
func shiftFrom(tx *gorm.DB, routeID uint, seq, delta int) error {
	return tx.Model(&models.Stop{}).
		Where("route_id = ? AND sequence >= ?", routeID, seq).
		UpdateColumn("sequence", gorm.Expr("sequence + ?", delta)).Error
}

// moveStop shifts the stops between from and to by one to make room at to.
func moveStop(tx *gorm.DB, routeID uint, from, to int) error {
	q := tx.Model(&models.Stop{}).Where("route_id = ?", routeID)
	if to < from {
		return q.Where("sequence >= ? AND sequence < ?", to, from).
			UpdateColumn("sequence", gorm.Expr("sequence + 1")).Error
	}
	return q.Where("sequence > ? AND sequence <= ?", from, to).
		UpdateColumn("sequence", gorm.Expr("sequence - 1")).Error
}

func clampSequence(seq, last int) int {
	if seq < 1 {
		return 1
	}
	if last < 1 {
		return 1
	}
	if seq > last {
		return last
	}
	return seq
}

func stopFromPayload(p stopflow.StopPayload) models.Stop {
	s := models.Stop{
		RouteID:    p.RouteID,
		BusinessID: p.BusinessID,
		StopType:   string(p.StopType),
		PartyMode:  string(p.PartyMode),
		CustomerID: p.CustomerID,
		VendorID:   p.VendorID,
		Address: models.AddressFields{
			Line1:       p.Address.Line1,
			Line2:       p.Address.Line2,
			City:        p.Address.City,
			Region:      p.Address.Region,
			Postal:      p.Address.Postal,
			CountryCode: p.Address.CountryCode,
		},
		PlannedServiceMinutes: p.PlannedServiceMinutes,
		WindowStart:           p.WindowStart,
		WindowEnd:             p.WindowEnd,
		HardWindow:            p.HardWindow,
		Notes:                 p.Notes,
	}
	if p.Contact != nil {
		s.Contact = models.ContactInfo(*p.Contact)
	}
	if p.Coordinates != nil {
		lat, lng := p.Coordinates.Lat, p.Coordinates.Lng
		s.Lat, s.Lng = &lat, &lng
	}
	return s
}
