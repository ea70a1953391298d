package stopflow

// DefaultCurrency is the only currency stop payments are recorded in.
const DefaultCurrency = "USD"

// PaymentStatusPending is the status every new stop payment starts in.
const PaymentStatusPending = "pending"

// StopPayload is the create-stop request: stage 1 plus the schedule fields
// of stage 2 and the computed sequence.
type StopPayload struct {
	RouteID    uint      `json:"route_id"`
	BusinessID uint      `json:"business_id"`
	Sequence   int       `json:"sequence"`
	StopType   StopType  `json:"stop_type"`
	PartyMode  PartyMode `json:"party_mode"`

	CustomerID  *uint        `json:"customer_id"`
	VendorID    *uint        `json:"vendor_id"`
	Contact     *Contact     `json:"contact"`
	Address     Address      `json:"address"`
	Coordinates *Coordinates `json:"coordinates"`

	PlannedServiceMinutes *int   `json:"planned_service_minutes"`
	WindowStart           string `json:"window_start"`
	WindowEnd             string `json:"window_end"`
	HardWindow            bool   `json:"hard_window"`
	Notes                 string `json:"notes"`
}

// RequirementsPayload carries the flags in wire form (see EncodeRequirements).
type RequirementsPayload struct {
	StopID     uint            `json:"stop_id"`
	Flags      map[string]bool `json:"flags"`
	AccessCode string          `json:"access_code"`
	AccessInfo string          `json:"access_info"`
}

type PaymentPayload struct {
	StopID    uint    `json:"stop_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Method    string  `json:"method"`
	Reference string  `json:"reference"`
	Notes     string  `json:"notes"`
	Status    string  `json:"status"`
}

type PhotoPayload struct {
	StopID     uint          `json:"stop_id"`
	UploadedBy uint          `json:"uploaded_by"`
	Category   PhotoCategory `json:"category"`
	URL        string        `json:"url"`
	MimeType   string        `json:"mime_type"`
	Size       int64         `json:"size"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
}
