package stopflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeIdentity() Identity {
	return Identity{
		BusinessID: 1,
		StopType:   StopDelivery,
		PartyMode:  PartyCustomer,
		CustomerID: uintPtr(7),
		Address:    Address{Line1: "123 Main St", City: "Springfield", Region: "IL"},
	}
}

func TestIsComplete(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Identity)
		want   bool
	}{
		{"customer", func(*Identity) {}, true},
		{"vendor", func(i *Identity) { i.PartyMode, i.CustomerID, i.VendorID = PartyVendor, nil, uintPtr(2) }, true},
		{"one time", func(i *Identity) { i.PartyMode, i.CustomerID, i.Contact = PartyOneTime, nil, &Contact{Name: "Pat"} }, true},
		{"one time without name", func(i *Identity) { i.PartyMode, i.CustomerID, i.Contact = PartyOneTime, nil, &Contact{Name: "  "} }, false},
		{"customer mode without id", func(i *Identity) { i.CustomerID = nil }, false},
		{"missing line1", func(i *Identity) { i.Address.Line1 = "" }, false},
		{"missing city", func(i *Identity) { i.Address.City = "" }, false},
		{"missing region", func(i *Identity) { i.Address.Region = "" }, false},
		{"missing stop type", func(i *Identity) { i.StopType = "" }, false},
		{"unknown stop type", func(i *Identity) { i.StopType = "teleport" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := completeIdentity()
			tt.mutate(&id)
			assert.Equal(t, tt.want, id.IsComplete())
		})
	}
}

func TestSplitAddress(t *testing.T) {
	a, err := SplitAddress("123 Main St, Springfield, IL")
	require.NoError(t, err)
	assert.Equal(t, Address{Line1: "123 Main St", City: "Springfield", Region: "IL"}, a)

	a, err = SplitAddress("9 Elm Rd, Austin, TX 78701, USA")
	require.NoError(t, err)
	assert.Equal(t, "TX 78701", a.Region)
	assert.Equal(t, "USA", a.CountryCode)

	for _, bad := range []string{"", "123 Main St", "123 Main St, Springfield", "123 Main St,Springfield,IL", ", Springfield, IL"} {
		_, err := SplitAddress(bad)
		assert.ErrorIs(t, err, ErrUnparseableAddress, bad)
	}
}

func TestResolveCustomerCopiesRecord(t *testing.T) {
	h := newHarness(t)
	h.parties.customers = []Party{{
		ID:          7,
		Contact:     Contact{Name: "Dana", Phone: "555-0100"},
		Address:     Address{Line1: "123 Main St", City: "Springfield", Region: "IL"},
		Coordinates: &Coordinates{Lat: 1, Lng: 2},
	}}

	id := Identity{BusinessID: 1, StopType: StopDelivery, Contact: &Contact{Name: "stale"}}
	require.NoError(t, h.flow.Identity.ResolveParty(context.Background(), &id, PartySelection{Mode: PartyCustomer, PartyID: 7}))

	assert.Equal(t, PartyCustomer, id.PartyMode)
	require.NotNil(t, id.CustomerID)
	assert.EqualValues(t, 7, *id.CustomerID)
	assert.Nil(t, id.VendorID)
	assert.Nil(t, id.Contact)
	assert.Equal(t, "Springfield", id.Address.City)
	assert.Equal(t, &Coordinates{Lat: 1, Lng: 2}, id.Coordinates)
	assert.Empty(t, h.geo.geocoded, "record coordinates are reused")
	assert.True(t, id.IsComplete())
}

func TestResolveVendorNotFound(t *testing.T) {
	h := newHarness(t)
	h.parties.vendors = []Party{{ID: 1}}

	id := Identity{}
	err := h.flow.Identity.ResolveParty(context.Background(), &id, PartySelection{Mode: PartyVendor, PartyID: 2})
	assert.ErrorIs(t, err, ErrPartyNotFound)
}

func TestResolveOneTimeFromSuggestionText(t *testing.T) {
	h := newHarness(t)

	id := Identity{StopType: StopPickup}
	sel := PartySelection{
		Mode:       PartyOneTime,
		Contact:    Contact{Name: "Walk-in"},
		Suggestion: &Suggestion{Text: "123 Main St, Springfield, IL"},
	}
	require.NoError(t, h.flow.Identity.ResolveParty(context.Background(), &id, sel))

	assert.Equal(t, "123 Main St", id.Address.Line1)
	assert.Equal(t, "Springfield", id.Address.City)
	assert.Equal(t, "IL", id.Address.Region)
	assert.Equal(t, []string{"123 Main St, Springfield, IL"}, h.geo.geocoded)
	require.NotNil(t, id.Coordinates)
	assert.InDelta(t, 39.78, id.Coordinates.Lat, 1e-9)
	assert.True(t, id.IsComplete())
}

func TestResolveOneTimePrefersStructuredSuggestion(t *testing.T) {
	h := newHarness(t)

	structured := &Address{Line1: "1 Loop Rd", City: "Chicago", Region: "IL", Postal: "60601"}
	sel := PartySelection{
		Mode:       PartyOneTime,
		Contact:    Contact{Name: "Walk-in"},
		Suggestion: &Suggestion{Text: "garbled", Address: structured, Coordinates: &Coordinates{Lat: 41.8, Lng: -87.6}},
	}
	id := Identity{StopType: StopPickup}
	require.NoError(t, h.flow.Identity.ResolveParty(context.Background(), &id, sel))

	assert.Equal(t, *structured, id.Address)
	assert.Empty(t, h.geo.geocoded)
}

func TestResolveOneTimeRejectsUnparseableSuggestion(t *testing.T) {
	h := newHarness(t)
	id := Identity{Address: Address{Line1: "kept"}}

	err := h.flow.Identity.ResolveParty(context.Background(), &id, PartySelection{
		Mode:       PartyOneTime,
		Suggestion: &Suggestion{Text: "Springfield"},
	})
	assert.ErrorIs(t, err, ErrUnparseableAddress)
	assert.Equal(t, "kept", id.Address.Line1)
}

func TestGeocodeFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.geo.err = errBoom

	id := Identity{StopType: StopService}
	err := h.flow.Identity.ResolveParty(context.Background(), &id, PartySelection{
		Mode:    PartyOneTime,
		Contact: Contact{Name: "Pat"},
		Address: Address{Line1: "5 Oak Ave", City: "Peoria", Region: "IL"},
	})
	require.NoError(t, err)
	assert.Nil(t, id.Coordinates)
	assert.True(t, id.IsComplete())
}

func TestSuggestSwallowsErrors(t *testing.T) {
	h := newHarness(t)
	h.geo.err = errBoom

	got := h.flow.Identity.Suggest(context.Background(), "123 Main")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestUnknownPartyMode(t *testing.T) {
	h := newHarness(t)
	err := h.flow.Identity.ResolveParty(context.Background(), &Identity{}, PartySelection{Mode: "friend"})
	assert.ErrorIs(t, err, ErrUnknownPartyMode)
}

func TestSaveIdentity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.flow.Identity.Save(ctx, h.key, Identity{StopType: StopDelivery})
	assert.ErrorIs(t, err, ErrIncompleteIdentity)
	_, ok, err := h.flow.Identity.Load(ctx, h.key)
	require.NoError(t, err)
	assert.False(t, ok)

	id := completeIdentity()
	id.VendorID = uintPtr(99) // stray field, dropped on save
	require.NoError(t, h.flow.Identity.Save(ctx, h.key, id))

	got, ok, err := h.flow.Identity.Load(ctx, h.key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, got.VendorID)
	assert.EqualValues(t, 7, *got.CustomerID)
	assert.Equal(t, h.key.RouteID, got.RouteID)

	// re-save replaces the stage wholesale
	second := completeIdentity()
	second.Address.City = "Peoria"
	require.NoError(t, h.flow.Identity.Save(ctx, h.key, second))
	got, _, err = h.flow.Identity.Load(ctx, h.key)
	require.NoError(t, err)
	assert.Equal(t, "Peoria", got.Address.City)
}

func TestDraftsAreNamespacedByRoute(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	other := DraftKey{UserID: h.key.UserID, RouteID: h.key.RouteID + 1}

	require.NoError(t, h.flow.Identity.Save(ctx, h.key, completeIdentity()))

	_, ok, err := h.flow.Identity.Load(ctx, other)
	require.NoError(t, err)
	assert.False(t, ok)
}
