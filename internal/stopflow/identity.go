package stopflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Identity is draft stage 1: who the stop is for and where it is.
type Identity struct {
	RouteID    uint      `json:"route_id"`
	BusinessID uint      `json:"business_id"`
	StopType   StopType  `json:"stop_type"`
	PartyMode  PartyMode `json:"party_mode"`

	CustomerID *uint    `json:"customer_id,omitempty"`
	VendorID   *uint    `json:"vendor_id,omitempty"`
	Contact    *Contact `json:"contact,omitempty"`

	Address     Address      `json:"address"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`

	// Sequence is a placeholder; the real value is computed in stage 2.
	Sequence *int `json:"sequence,omitempty"`
}

// PartyResolved reports whether the party matching PartyMode is set.
func (i Identity) PartyResolved() bool {
	switch i.PartyMode {
	case PartyCustomer:
		return i.CustomerID != nil
	case PartyVendor:
		return i.VendorID != nil
	case PartyOneTime:
		return i.Contact != nil && strings.TrimSpace(i.Contact.Name) != ""
	}
	return false
}

// normalize drops party fields that do not belong to PartyMode.
func (i *Identity) normalize() {
	switch i.PartyMode {
	case PartyCustomer:
		i.VendorID, i.Contact = nil, nil
	case PartyVendor:
		i.CustomerID, i.Contact = nil, nil
	case PartyOneTime:
		i.CustomerID, i.VendorID = nil, nil
	}
}

// IsComplete is the gate for leaving the identity step.
func (i Identity) IsComplete() bool {
	return strings.TrimSpace(i.Address.Line1) != "" &&
		strings.TrimSpace(i.Address.City) != "" &&
		strings.TrimSpace(i.Address.Region) != "" &&
		i.StopType.Valid() &&
		i.PartyResolved()
}

// PartySelection is the user's choice on the identity step.
type PartySelection struct {
	Mode    PartyMode `json:"party_mode"`
	PartyID uint      `json:"party_id"`

	// One-time contacts only.
	Contact    Contact     `json:"contact"`
	Address    Address     `json:"address"`
	Suggestion *Suggestion `json:"suggestion,omitempty"`
}

// IdentityStep resolves and stages the "who" and "where" of a stop.
type IdentityStep struct {
	Drafts    DraftStore
	Parties   PartyDirectory
	Addresses AddressResolver
}

// Suggest returns address suggestions; lookup failures yield an empty list.
func (s *IdentityStep) Suggest(ctx context.Context, text string) []Suggestion {
	text = strings.TrimSpace(text)
	if text == "" || s.Addresses == nil {
		return []Suggestion{}
	}
	out, err := s.Addresses.Autocomplete(ctx, text)
	if err != nil {
		logrus.WithError(err).WithField("text", text).Warn("address autocomplete failed")
		return []Suggestion{}
	}
	if out == nil {
		out = []Suggestion{}
	}
	return out
}

// ResolveParty fills the party, address and coordinates of id from sel.
// Exactly one of CustomerID, VendorID and Contact is left set.
func (s *IdentityStep) ResolveParty(ctx context.Context, id *Identity, sel PartySelection) error {
	switch sel.Mode {
	case PartyCustomer, PartyVendor:
		party, err := s.findParty(ctx, sel.Mode, id.BusinessID, sel.PartyID)
		if err != nil {
			return err
		}
		pid := party.ID
		id.PartyMode = sel.Mode
		id.CustomerID, id.VendorID, id.Contact = nil, nil, nil
		if sel.Mode == PartyCustomer {
			id.CustomerID = &pid
		} else {
			id.VendorID = &pid
		}
		id.Address = party.Address
		id.Coordinates = party.Coordinates

	case PartyOneTime:
		addr := sel.Address
		var coords *Coordinates
		if sel.Suggestion != nil {
			a, err := AddressFromSuggestion(*sel.Suggestion)
			if err != nil {
				return err
			}
			addr = a
			coords = sel.Suggestion.Coordinates
		}
		contact := sel.Contact
		id.PartyMode = PartyOneTime
		id.CustomerID, id.VendorID = nil, nil
		id.Contact = &contact
		id.Address = addr
		id.Coordinates = coords

	default:
		return fmt.Errorf("%w: %q", ErrUnknownPartyMode, sel.Mode)
	}

	if id.Coordinates == nil {
		id.Coordinates = s.geocode(ctx, id.Address)
	}
	return nil
}

func (s *IdentityStep) findParty(ctx context.Context, mode PartyMode, businessID, partyID uint) (Party, error) {
	if s.Parties == nil {
		return Party{}, ErrPartyNotFound
	}
	var (
		list []Party
		err  error
	)
	if mode == PartyCustomer {
		list, err = s.Parties.ListCustomers(ctx, businessID)
	} else {
		list, err = s.Parties.ListVendors(ctx, businessID)
	}
	if err != nil {
		return Party{}, fmt.Errorf("list %ss: %w", mode, err)
	}
	for _, p := range list {
		if p.ID == partyID {
			return p, nil
		}
	}
	return Party{}, fmt.Errorf("%w: %s %d", ErrPartyNotFound, mode, partyID)
}

// geocode returns nil when the address cannot be resolved.
func (s *IdentityStep) geocode(ctx context.Context, a Address) *Coordinates {
	text := a.String()
	if text == "" || s.Addresses == nil {
		return nil
	}
	c, err := s.Addresses.Geocode(ctx, text)
	if err != nil {
		logrus.WithError(err).WithField("address", text).Warn("geocode failed, continuing without coordinates")
		return nil
	}
	return &c
}

// AddressFromSuggestion prefers the structured address of a suggestion and
// otherwise falls back to SplitAddress on its text.
func AddressFromSuggestion(sg Suggestion) (Address, error) {
	if sg.Address != nil && sg.Address.Line1 != "" && sg.Address.City != "" && sg.Address.Region != "" {
		return *sg.Address, nil
	}
	return SplitAddress(sg.Text)
}

// SplitAddress decomposes "line1, city, region[, ...]" by position.
// Inputs with fewer than three non-empty parts are rejected.
func SplitAddress(text string) (Address, error) {
	parts := strings.Split(text, ", ")
	if len(parts) < 3 {
		return Address{}, fmt.Errorf("%w: %q", ErrUnparseableAddress, text)
	}
	a := Address{
		Line1:  strings.TrimSpace(parts[0]),
		City:   strings.TrimSpace(parts[1]),
		Region: strings.TrimSpace(parts[2]),
	}
	if a.Line1 == "" || a.City == "" || a.Region == "" {
		return Address{}, fmt.Errorf("%w: %q", ErrUnparseableAddress, text)
	}
	if len(parts) > 3 {
		a.CountryCode = strings.TrimSpace(parts[len(parts)-1])
	}
	return a, nil
}

// Save replaces stage 1 for key. Incomplete identities are rejected, as is
// any edit while a submission is pending.
func (s *IdentityStep) Save(ctx context.Context, key DraftKey, id Identity) error {
	if !id.IsComplete() {
		return ErrIncompleteIdentity
	}
	if err := pendingSubmission(ctx, s.Drafts, key); err != nil {
		return err
	}
	id.normalize()
	id.RouteID = key.RouteID
	if err := s.Drafts.Set(ctx, key.stage(stageIdentity), id); err != nil {
		return fmt.Errorf("save identity draft: %w", err)
	}
	return nil
}

// Load returns the saved stage 1, if any.
func (s *IdentityStep) Load(ctx context.Context, key DraftKey) (Identity, bool, error) {
	var id Identity
	ok, err := s.Drafts.Get(ctx, key.stage(stageIdentity), &id)
	if err != nil {
		return Identity{}, false, fmt.Errorf("load identity draft: %w", err)
	}
	return id, ok, nil
}
