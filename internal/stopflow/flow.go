// Package stopflow assembles a new route stop over three steps: identity
// (who and where), schedule (when and what is required) and submission
// (photos plus the ordered remote writes). Each step persists its stage in a
// DraftStore so the user can move back and forth between requests.
package stopflow

// Deps are the collaborators shared by the three steps.
type Deps struct {
	Drafts       DraftStore
	Routes       RouteReader
	Parties      PartyDirectory
	Addresses    AddressResolver
	Blobs        BlobUploader
	Stops        StopWriter
	Requirements RequirementWriter
	Payments     PaymentWriter
	Photos       PhotoWriter
}

// Flow wires the steps of one stop-creation workflow.
type Flow struct {
	Identity   *IdentityStep
	Schedule   *ScheduleStep
	Submission *SubmissionStep
}

func New(d Deps) *Flow {
	return &Flow{
		Identity: &IdentityStep{
			Drafts:    d.Drafts,
			Parties:   d.Parties,
			Addresses: d.Addresses,
		},
		Schedule: &ScheduleStep{
			Drafts: d.Drafts,
			Routes: d.Routes,
		},
		Submission: &SubmissionStep{
			Drafts:       d.Drafts,
			Routes:       d.Routes,
			Stops:        d.Stops,
			Requirements: d.Requirements,
			Payments:     d.Payments,
			Photos:       d.Photos,
			Blobs:        d.Blobs,
		},
	}
}
