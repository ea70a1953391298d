package stopflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"route_planner/internal/draft"
)

func newDrafts(t *testing.T) *draft.Store {
	t.Helper()
	s, err := draft.OpenInMemory(time.Hour)
	if err != nil {
		t.Fatalf("open draft store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// fakeRemote records every write the workflow makes.
type fakeRemote struct {
	mu sync.Mutex

	stopCount int
	nextID    uint

	stops        []StopPayload
	requirements []RequirementsPayload
	payments     []PaymentPayload
	photos       []PhotoPayload

	deleted map[uint]bool

	stopErr        error
	requirementErr error
	paymentErr     error
	photoErr       func(PhotoPayload) error
}

func (f *fakeRemote) CountStops(context.Context, uint) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCount, nil
}

func (f *fakeRemote) CreateStop(_ context.Context, p StopPayload) (uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopErr != nil {
		return 0, f.stopErr
	}
	f.stops = append(f.stops, p)
	f.stopCount++
	f.nextID++
	return 100 + f.nextID, nil
}

func (f *fakeRemote) StopExists(_ context.Context, id uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return id > 100 && id <= 100+f.nextID && !f.deleted[id], nil
}

// deleteStop simulates the stop being removed from the route out of band.
func (f *fakeRemote) deleteStop(id uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleted == nil {
		f.deleted = map[uint]bool{}
	}
	f.deleted[id] = true
	f.stopCount--
}

func (f *fakeRemote) UpsertRequirements(_ context.Context, p RequirementsPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.requirementErr != nil {
		return f.requirementErr
	}
	f.requirements = append(f.requirements, p)
	return nil
}

func (f *fakeRemote) UpsertPayment(_ context.Context, p PaymentPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.paymentErr != nil {
		return f.paymentErr
	}
	f.payments = append(f.payments, p)
	return nil
}

func (f *fakeRemote) CreatePhoto(_ context.Context, p PhotoPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.photoErr != nil {
		if err := f.photoErr(p); err != nil {
			return err
		}
	}
	f.photos = append(f.photos, p)
	return nil
}

type fakeParties struct {
	customers []Party
	vendors   []Party
	err       error
}

func (f *fakeParties) ListCustomers(context.Context, uint) ([]Party, error) {
	return f.customers, f.err
}

func (f *fakeParties) ListVendors(context.Context, uint) ([]Party, error) {
	return f.vendors, f.err
}

type fakeResolver struct {
	suggestions []Suggestion
	coords      Coordinates
	err         error
	geocoded    []string
}

func (f *fakeResolver) Autocomplete(context.Context, string) ([]Suggestion, error) {
	return f.suggestions, f.err
}

func (f *fakeResolver) Geocode(_ context.Context, text string) (Coordinates, error) {
	f.geocoded = append(f.geocoded, text)
	return f.coords, f.err
}

type fakeBlobs struct {
	mu  sync.Mutex
	n   int
	err error
}

func (f *fakeBlobs) Upload(_ context.Context, a Asset) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.ReadAll(a.Body); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return fmt.Sprintf("https://blobs.test/%d-%s", f.n, a.Filename), nil
}

// failingDrafts wraps a store and fails Set for keys ending in failSuffix.
type failingDrafts struct {
	DraftStore
	failSuffix string
}

func (f failingDrafts) Set(ctx context.Context, key string, v any) error {
	if strings.HasSuffix(key, f.failSuffix) {
		return errBoom
	}
	return f.DraftStore.Set(ctx, key, v)
}

type fakeSource struct {
	name string
	err  error
}

func (f fakeSource) Capture(context.Context) (Asset, error) {
	if f.err != nil {
		return Asset{}, f.err
	}
	data := []byte("jpeg-bytes")
	return Asset{
		Filename: f.name,
		MimeType: "image/jpeg",
		Size:     int64(len(data)),
		Width:    640,
		Height:   480,
		Body:     bytes.NewReader(data),
	}, nil
}

var errBoom = errors.New("boom")

type harness struct {
	flow    *Flow
	drafts  *draft.Store
	remote  *fakeRemote
	parties *fakeParties
	geo     *fakeResolver
	blobs   *fakeBlobs
	key     DraftKey
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		drafts:  newDrafts(t),
		remote:  &fakeRemote{},
		parties: &fakeParties{},
		geo:     &fakeResolver{coords: Coordinates{Lat: 39.78, Lng: -89.65}},
		blobs:   &fakeBlobs{},
		key:     DraftKey{UserID: 3, RouteID: 11},
	}
	h.flow = New(Deps{
		Drafts:       h.drafts,
		Routes:       h.remote,
		Parties:      h.parties,
		Addresses:    h.geo,
		Blobs:        h.blobs,
		Stops:        h.remote,
		Requirements: h.remote,
		Payments:     h.remote,
		Photos:       h.remote,
	})
	return h
}

func uintPtr(v uint) *uint { return &v }
