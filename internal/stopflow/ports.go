package stopflow

import (
	"context"
	"io"
)

// DraftStore is the durable key-value store holding in-progress drafts.
// Values are JSON documents; Get reports false when the key is absent.
type DraftStore interface {
	Get(ctx context.Context, key string, v any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Remove(ctx context.Context, key string) error
}

// StopWriter creates the authoritative stop record and returns its id.
// StopExists lets a resumed submission notice that its stop was deleted.
type StopWriter interface {
	CreateStop(ctx context.Context, p StopPayload) (uint, error)
	StopExists(ctx context.Context, id uint) (bool, error)
}

type RequirementWriter interface {
	UpsertRequirements(ctx context.Context, p RequirementsPayload) error
}

type PaymentWriter interface {
	UpsertPayment(ctx context.Context, p PaymentPayload) error
}

type PhotoWriter interface {
	CreatePhoto(ctx context.Context, p PhotoPayload) error
}

// RouteReader answers how many stops a route currently has.
type RouteReader interface {
	CountStops(ctx context.Context, routeID uint) (int, error)
}

type PartyDirectory interface {
	ListCustomers(ctx context.Context, businessID uint) ([]Party, error)
	ListVendors(ctx context.Context, businessID uint) ([]Party, error)
}

type AddressResolver interface {
	Autocomplete(ctx context.Context, text string) ([]Suggestion, error)
	Geocode(ctx context.Context, text string) (Coordinates, error)
}

// Asset is a captured image ready for upload.
type Asset struct {
	Filename string
	MimeType string
	Size     int64
	Width    int
	Height   int
	Body     io.Reader
}

// ImageSource is the capture capability (camera or gallery) handed to AttachPhoto.
type ImageSource interface {
	Capture(ctx context.Context) (Asset, error)
}

// BlobUploader stores an asset and returns its public URL.
type BlobUploader interface {
	Upload(ctx context.Context, a Asset) (string, error)
}
