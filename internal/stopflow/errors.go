package stopflow

import "errors"

var (
	ErrIncompleteIdentity  = errors.New("stop identity is incomplete")
	ErrUnknownPartyMode    = errors.New("unknown party mode")
	ErrPartyNotFound       = errors.New("party not found")
	ErrUnparseableAddress  = errors.New("address suggestion could not be split into line, city and region")
	ErrIdentityMissing     = errors.New("stop identity has not been saved")
	ErrInvalidSchedule     = errors.New("stop schedule is invalid")
	ErrUnsupportedPosition = errors.New("unsupported position mode")
	ErrUnknownCategory     = errors.New("unknown photo category")
	ErrSlotOutOfRange      = errors.New("photo slot out of range")
	ErrSubmissionPending   = errors.New("a submission of this draft is in progress; retry submit or discard the draft")
)
