package stopflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// photoWriteLimit bounds concurrent photo record writes per submission.
const photoWriteLimit = 4

// SubmissionStep turns the saved drafts into remote records.
type SubmissionStep struct {
	Drafts       DraftStore
	Routes       RouteReader
	Stops        StopWriter
	Requirements RequirementWriter
	Payments     PaymentWriter
	Photos       PhotoWriter
	Blobs        BlobUploader

	slotLocks draftLocks
}

// progress records which remote writes of a submission already succeeded,
// so a retry resumes at the failed write instead of creating a second stop.
type progress struct {
	StopID            uint `json:"stop_id"`
	Sequence          int  `json:"sequence"`
	RequirementsSaved bool `json:"requirements_saved"`
	PaymentSaved      bool `json:"payment_saved"`
}

// PhotoFailure is a photo record that could not be created.
type PhotoFailure struct {
	Category PhotoCategory `json:"category"`
	URL      string        `json:"url"`
	Error    string        `json:"error"`
}

// SubmitResult describes a completed submission. PhotoFailures does not make
// the submission fail; the stop and its other records exist regardless.
type SubmitResult struct {
	StopID        uint           `json:"stop_id"`
	Sequence      int            `json:"sequence"`
	PhotosCreated int            `json:"photos_created"`
	PhotoFailures []PhotoFailure `json:"photo_failures"`
}

// Submit creates the stop, then its requirements, payment and photos, in
// that order. Any failure before the photos leaves every draft entry in
// place. Missing stages are tolerated and produce a sparse stop.
func (s *SubmissionStep) Submit(ctx context.Context, key DraftKey, uploaderID uint) (*SubmitResult, error) {
	log := logrus.WithFields(logrus.Fields{"user_id": key.UserID, "route_id": key.RouteID})
	defer s.slotLocks.lock(key)()

	var id Identity
	hasIdentity, err := s.Drafts.Get(ctx, key.stage(stageIdentity), &id)
	if err != nil {
		return nil, fmt.Errorf("load identity draft: %w", err)
	}
	var sched Schedule
	hasSchedule, err := s.Drafts.Get(ctx, key.stage(stageSchedule), &sched)
	if err != nil {
		return nil, fmt.Errorf("load schedule draft: %w", err)
	}
	if !hasIdentity || !hasSchedule {
		log.WithFields(logrus.Fields{
			"has_identity": hasIdentity,
			"has_schedule": hasSchedule,
		}).Warn("submitting stop with missing draft stages")
	}
	slots, err := s.Slots(ctx, key)
	if err != nil {
		return nil, err
	}

	var prog progress
	if _, err := s.Drafts.Get(ctx, key.stage(stageProgress), &prog); err != nil {
		return nil, fmt.Errorf("load submission progress: %w", err)
	}

	if prog.StopID != 0 {
		exists, err := s.Stops.StopExists(ctx, prog.StopID)
		if err != nil {
			return nil, fmt.Errorf("check stop %d: %w", prog.StopID, err)
		}
		if !exists {
			log.WithField("stop_id", prog.StopID).Warn("checkpointed stop is gone, starting the submission over")
			prog = progress{}
			if err := s.Drafts.Remove(ctx, key.stage(stageProgress)); err != nil {
				return nil, fmt.Errorf("clear submission progress: %w", err)
			}
		}
	}

	if prog.StopID == 0 {
		count, err := s.Routes.CountStops(ctx, key.RouteID)
		if err != nil {
			return nil, fmt.Errorf("count stops: %w", err)
		}
		mode := PositionEnd
		if hasSchedule && sched.Position.Mode != "" {
			mode = sched.Position.Mode
		}
		seq, err := ComputeSequence(mode, count)
		if err != nil {
			return nil, err
		}

		payload := buildStopPayload(key, id, sched, seq)
		stopID, err := s.Stops.CreateStop(ctx, payload)
		if err != nil {
			return nil, fmt.Errorf("create stop: %w", err)
		}
		prog = progress{StopID: stopID, Sequence: seq}
		// Without this checkpoint a retry would create the stop a second time.
		if err := s.checkpoint(ctx, key, prog); err != nil {
			return nil, fmt.Errorf("stop %d created but submission progress was not saved: %w", stopID, err)
		}
		log.WithFields(logrus.Fields{"stop_id": stopID, "sequence": seq}).Info("stop created")
	}

	if hasSchedule && !prog.RequirementsSaved {
		err := s.Requirements.UpsertRequirements(ctx, RequirementsPayload{
			StopID:     prog.StopID,
			Flags:      EncodeRequirements(sched.Requirements),
			AccessCode: sched.Access.AccessCode,
			AccessInfo: sched.Access.AccessInfo,
		})
		if err != nil {
			return nil, fmt.Errorf("save stop %d requirements: %w", prog.StopID, err)
		}
		prog.RequirementsSaved = true
		s.checkpointOrLog(ctx, key, prog)
	}

	if hasSchedule && sched.Payment.Expected && !prog.PaymentSaved {
		amount, _ := sched.Payment.AmountValue()
		err := s.Payments.UpsertPayment(ctx, PaymentPayload{
			StopID:    prog.StopID,
			Amount:    amount,
			Currency:  DefaultCurrency,
			Method:    string(sched.Payment.Method),
			Reference: sched.Payment.Reference,
			Notes:     sched.Payment.Notes,
			Status:    PaymentStatusPending,
		})
		if err != nil {
			return nil, fmt.Errorf("save stop %d payment: %w", prog.StopID, err)
		}
		prog.PaymentSaved = true
		s.checkpointOrLog(ctx, key, prog)
	}

	res := &SubmitResult{StopID: prog.StopID, Sequence: prog.Sequence, PhotoFailures: []PhotoFailure{}}
	s.attachPhotos(ctx, prog.StopID, uploaderID, slots, res)
	for _, f := range res.PhotoFailures {
		log.WithFields(logrus.Fields{"stop_id": prog.StopID, "category": f.Category, "url": f.URL}).
			Warn("photo record failed: " + f.Error)
	}

	if err := s.discard(ctx, key); err != nil {
		// The stop exists; a stale draft is only an annoyance.
		log.WithError(err).Error("failed to clear draft after submit")
	}
	return res, nil
}

// attachPhotos writes one photo record per filled slot concurrently and
// waits for all of them.
func (s *SubmissionStep) attachPhotos(ctx context.Context, stopID, uploaderID uint, slots PhotoSlots, res *SubmitResult) {
	photos := slots.filled()
	if len(photos) == 0 {
		return
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(photoWriteLimit)
	for _, cp := range photos {
		g.Go(func() error {
			err := s.Photos.CreatePhoto(ctx, PhotoPayload{
				StopID:     stopID,
				UploadedBy: uploaderID,
				Category:   cp.Category,
				URL:        cp.Photo.URL,
				MimeType:   cp.Photo.MimeType,
				Size:       cp.Photo.Size,
				Width:      cp.Photo.Width,
				Height:     cp.Photo.Height,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.PhotoFailures = append(res.PhotoFailures, PhotoFailure{
					Category: cp.Category,
					URL:      cp.Photo.URL,
					Error:    err.Error(),
				})
				return nil
			}
			res.PhotosCreated++
			return nil
		})
	}
	_ = g.Wait()
}

// checkpoint persists submission progress.
func (s *SubmissionStep) checkpoint(ctx context.Context, key DraftKey, p progress) error {
	if err := s.Drafts.Set(ctx, key.stage(stageProgress), p); err != nil {
		return fmt.Errorf("save submission progress: %w", err)
	}
	return nil
}

// checkpointOrLog is used after idempotent upserts, where a lost checkpoint
// only means the upsert is repeated on retry.
func (s *SubmissionStep) checkpointOrLog(ctx context.Context, key DraftKey, p progress) {
	if err := s.checkpoint(ctx, key, p); err != nil {
		logrus.WithError(err).WithField("stop_id", p.StopID).Error("failed to save submission progress")
	}
}

// Discard removes every draft entry stored under key.
func (s *SubmissionStep) Discard(ctx context.Context, key DraftKey) error {
	defer s.slotLocks.lock(key)()
	return s.discard(ctx, key)
}

func (s *SubmissionStep) discard(ctx context.Context, key DraftKey) error {
	for _, stage := range []string{stageIdentity, stageSchedule, stagePhotos, stageProgress} {
		if err := s.Drafts.Remove(ctx, key.stage(stage)); err != nil {
			return fmt.Errorf("remove %s draft: %w", stage, err)
		}
	}
	return nil
}

func buildStopPayload(key DraftKey, id Identity, sched Schedule, seq int) StopPayload {
	p := StopPayload{
		RouteID:     key.RouteID,
		BusinessID:  id.BusinessID,
		Sequence:    seq,
		StopType:    id.StopType,
		PartyMode:   id.PartyMode,
		CustomerID:  id.CustomerID,
		VendorID:    id.VendorID,
		Contact:     id.Contact,
		Address:     id.Address,
		Coordinates: id.Coordinates,

		PlannedServiceMinutes: sched.Window.PlannedServiceMinutes,
		WindowStart:           sched.Window.WindowStart,
		WindowEnd:             sched.Window.WindowEnd,
		HardWindow:            sched.Window.HardWindow,
		Notes:                 sched.Access.Notes,
	}
	return p
}
