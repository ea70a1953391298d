package stopflow

// StopType is what happens at a stop.
type StopType string

const (
	StopDelivery StopType = "delivery"
	StopPickup   StopType = "pickup"
	StopService  StopType = "service"
	StopInstall  StopType = "install"
	StopRepair   StopType = "repair"
	StopLunch    StopType = "lunch"
	StopBase     StopType = "base"
	StopOther    StopType = "other"
)

// Valid reports whether t is one of the known stop types.
func (t StopType) Valid() bool {
	switch t {
	case StopDelivery, StopPickup, StopService, StopInstall, StopRepair, StopLunch, StopBase, StopOther:
		return true
	}
	return false
}

// PartyMode selects who the stop is for.
type PartyMode string

const (
	PartyCustomer PartyMode = "customer"
	PartyVendor   PartyMode = "vendor"
	PartyOneTime  PartyMode = "one_time"
)

type Contact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	BusinessName string `json:"business_name"`
}

type Address struct {
	Line1       string `json:"line1"`
	Line2       string `json:"line2"`
	City        string `json:"city"`
	Region      string `json:"region"`
	Postal      string `json:"postal"`
	CountryCode string `json:"country_code"`
}

// String formats the address the way geocoders expect free text.
func (a Address) String() string {
	out := ""
	for _, part := range []string{a.Line1, a.Line2, a.City, a.Region, a.Postal, a.CountryCode} {
		if part == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += part
	}
	return out
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Party is a customer or vendor record from the directory.
type Party struct {
	ID          uint         `json:"id"`
	Contact     Contact      `json:"contact"`
	Address     Address      `json:"address"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Suggestion is one address autocomplete result. Address is set when the
// resolver returned structured fields.
type Suggestion struct {
	Text        string       `json:"text"`
	Address     *Address     `json:"address,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}
