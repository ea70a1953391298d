package repository

import (
	"context"

	"route_planner/internal/models"
	"route_planner/internal/stopflow"
)

// ListCustomers returns the business's customers as directory entries.
func (r *Repository) ListCustomers(ctx context.Context, businessID uint) ([]stopflow.Party, error) {
	var rows []models.Customer
	if err := r.conn(ctx).Where("business_id = ?", businessID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]stopflow.Party, 0, len(rows))
	for _, c := range rows {
		out = append(out, toParty(c.ID, c.Contact, c.Address, c.Lat, c.Lng))
	}
	return out, nil
}

// ListVendors returns the business's vendors as directory entries.
func (r *Repository) ListVendors(ctx context.Context, businessID uint) ([]stopflow.Party, error) {
	var rows []models.Vendor
	if err := r.conn(ctx).Where("business_id = ?", businessID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]stopflow.Party, 0, len(rows))
	for _, v := range rows {
		out = append(out, toParty(v.ID, v.Contact, v.Address, v.Lat, v.Lng))
	}
	return out, nil
}

func (r *Repository) CreateCustomer(ctx context.Context, c *models.Customer) error {
	return r.conn(ctx).Create(c).Error
}

func (r *Repository) CreateVendor(ctx context.Context, v *models.Vendor) error {
	return r.conn(ctx).Create(v).Error
}

func toParty(id uint, c models.ContactInfo, a models.AddressFields, lat, lng *float64) stopflow.Party {
	p := stopflow.Party{
		ID:      id,
		Contact: stopflow.Contact(c),
		Address: stopflow.Address{
			Line1:       a.Line1,
			Line2:       a.Line2,
			City:        a.City,
			Region:      a.Region,
			Postal:      a.Postal,
			CountryCode: a.CountryCode,
		},
	}
	if lat != nil && lng != nil {
		p.Coordinates = &stopflow.Coordinates{Lat: *lat, Lng: *lng}
	}
	return p
}
