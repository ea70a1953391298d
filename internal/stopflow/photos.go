package stopflow

import (
	"context"
	"fmt"
	"sync"
)

type PhotoCategory string

const (
	PhotoInvoice PhotoCategory = "invoice"
	PhotoOther   PhotoCategory = "other"
)

// PhotoSource is how an image was acquired.
type PhotoSource string

const (
	SourceCamera  PhotoSource = "camera"
	SourceGallery PhotoSource = "gallery"
)

func (s PhotoSource) Valid() bool {
	return s == SourceCamera || s == SourceGallery
}

// Photo is an uploaded image waiting in a slot.
type Photo struct {
	URL      string      `json:"url"`
	MimeType string      `json:"mime_type"`
	Size     int64       `json:"size"`
	Width    int         `json:"width"`
	Height   int         `json:"height"`
	Source   PhotoSource `json:"source"`
}

// PhotoSlots holds the picker slots per category. A nil entry is an empty slot.
type PhotoSlots struct {
	Invoice []*Photo `json:"invoice"`
	Other   []*Photo `json:"other"`
}

// NewPhotoSlots starts with one empty slot per category.
func NewPhotoSlots() PhotoSlots {
	return PhotoSlots{Invoice: []*Photo{nil}, Other: []*Photo{nil}}
}

func (ps *PhotoSlots) list(c PhotoCategory) (*[]*Photo, error) {
	switch c {
	case PhotoInvoice:
		return &ps.Invoice, nil
	case PhotoOther:
		return &ps.Other, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
}

// Add appends an empty slot and returns its index.
func (ps *PhotoSlots) Add(c PhotoCategory) (int, error) {
	l, err := ps.list(c)
	if err != nil {
		return 0, err
	}
	*l = append(*l, nil)
	return len(*l) - 1, nil
}

func (ps *PhotoSlots) check(c PhotoCategory, i int) error {
	l, err := ps.list(c)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(*l) {
		return fmt.Errorf("%w: %s[%d]", ErrSlotOutOfRange, c, i)
	}
	return nil
}

// Set fills slot i.
func (ps *PhotoSlots) Set(c PhotoCategory, i int, p *Photo) error {
	if err := ps.check(c, i); err != nil {
		return err
	}
	l, _ := ps.list(c)
	(*l)[i] = p
	return nil
}

// Remove deletes slot i; the last remaining slot is emptied instead so the
// category always keeps one picker.
func (ps *PhotoSlots) Remove(c PhotoCategory, i int) error {
	if err := ps.check(c, i); err != nil {
		return err
	}
	l, _ := ps.list(c)
	if len(*l) == 1 {
		(*l)[0] = nil
		return nil
	}
	*l = append((*l)[:i], (*l)[i+1:]...)
	return nil
}

// filled yields every non-empty slot with its category.
func (ps PhotoSlots) filled() []categorizedPhoto {
	var out []categorizedPhoto
	for _, p := range ps.Invoice {
		if p != nil && p.URL != "" {
			out = append(out, categorizedPhoto{PhotoInvoice, *p})
		}
	}
	for _, p := range ps.Other {
		if p != nil && p.URL != "" {
			out = append(out, categorizedPhoto{PhotoOther, *p})
		}
	}
	return out
}

type categorizedPhoto struct {
	Category PhotoCategory
	Photo    Photo
}

// Slots returns the saved photo slots, or fresh ones.
func (s *SubmissionStep) Slots(ctx context.Context, key DraftKey) (PhotoSlots, error) {
	ps := NewPhotoSlots()
	ok, err := s.Drafts.Get(ctx, key.stage(stagePhotos), &ps)
	if err != nil {
		return PhotoSlots{}, fmt.Errorf("load photo slots: %w", err)
	}
	if !ok {
		return NewPhotoSlots(), nil
	}
	if len(ps.Invoice) == 0 {
		ps.Invoice = []*Photo{nil}
	}
	if len(ps.Other) == 0 {
		ps.Other = []*Photo{nil}
	}
	return ps, nil
}

func (s *SubmissionStep) saveSlots(ctx context.Context, key DraftKey, ps PhotoSlots) error {
	if err := s.Drafts.Set(ctx, key.stage(stagePhotos), ps); err != nil {
		return fmt.Errorf("save photo slots: %w", err)
	}
	return nil
}

// AddSlot appends an empty slot to category c.
func (s *SubmissionStep) AddSlot(ctx context.Context, key DraftKey, c PhotoCategory) (PhotoSlots, error) {
	defer s.slotLocks.lock(key)()
	ps, err := s.Slots(ctx, key)
	if err != nil {
		return PhotoSlots{}, err
	}
	if _, err := ps.Add(c); err != nil {
		return PhotoSlots{}, err
	}
	return ps, s.saveSlots(ctx, key, ps)
}

// RemoveSlot removes slot i of category c (see PhotoSlots.Remove).
func (s *SubmissionStep) RemoveSlot(ctx context.Context, key DraftKey, c PhotoCategory, i int) (PhotoSlots, error) {
	defer s.slotLocks.lock(key)()
	ps, err := s.Slots(ctx, key)
	if err != nil {
		return PhotoSlots{}, err
	}
	if err := ps.Remove(c, i); err != nil {
		return PhotoSlots{}, err
	}
	return ps, s.saveSlots(ctx, key, ps)
}

// AttachPhoto captures an image from src, uploads it and records it in
// slot i of category c. On any failure the slot is left as it was. Capture
// and upload run unlocked; only the slot update is serialized per draft.
func (s *SubmissionStep) AttachPhoto(ctx context.Context, key DraftKey, c PhotoCategory, i int, from PhotoSource, src ImageSource) (PhotoSlots, error) {
	ps, err := s.Slots(ctx, key)
	if err != nil {
		return PhotoSlots{}, err
	}
	if err := ps.check(c, i); err != nil {
		return PhotoSlots{}, err
	}

	asset, err := src.Capture(ctx)
	if err != nil {
		return PhotoSlots{}, fmt.Errorf("capture photo: %w", err)
	}
	url, err := s.Blobs.Upload(ctx, asset)
	if err != nil {
		return PhotoSlots{}, fmt.Errorf("upload photo: %w", err)
	}
	p := &Photo{
		URL:      url,
		MimeType: asset.MimeType,
		Size:     asset.Size,
		Width:    asset.Width,
		Height:   asset.Height,
		Source:   from,
	}

	defer s.slotLocks.lock(key)()
	ps, err = s.Slots(ctx, key)
	if err != nil {
		return PhotoSlots{}, err
	}
	if err := ps.Set(c, i, p); err != nil {
		return PhotoSlots{}, err
	}
	return ps, s.saveSlots(ctx, key, ps)
}

// draftLocks hands out one mutex per draft key. Entries are dropped once no
// caller holds or waits for them.
type draftLocks struct {
	mu    sync.Mutex
	locks map[DraftKey]*draftLock
}

type draftLock struct {
	sync.Mutex
	refs int
}

// lock blocks until key is free and returns its unlock func.
func (l *draftLocks) lock(key DraftKey) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[DraftKey]*draftLock)
	}
	dl := l.locks[key]
	if dl == nil {
		dl = &draftLock{}
		l.locks[key] = dl
	}
	dl.refs++
	l.mu.Unlock()

	dl.Lock()
	return func() {
		dl.Unlock()
		l.mu.Lock()
		dl.refs--
		if dl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
