package stopflow

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Requirements is the canonical special-handling checklist.
type Requirements struct {
	GiveInvoice        bool `json:"give_invoice"`
	SignatureRequired  bool `json:"signature_required"`
	PhotosRequired     bool `json:"photos_required"`
	ChecklistRequired  bool `json:"checklist_required"`
	TwoPersonRequired  bool `json:"two_person_required"`
	LiftgateNeeded     bool `json:"liftgate_needed"`
	DockAppointment    bool `json:"dock_appointment"`
	IDCheck            bool `json:"id_check"`
	TemperatureControl bool `json:"temperature_control"`
	Contactless        bool `json:"contactless"`
	ContactBefore      bool `json:"contact_before"`
	PrintName          bool `json:"print_name"`
}

// requirementFlag binds a canonical key to its historical spellings.
// The remote schema has shipped every one of these names at some point.
type requirementFlag struct {
	key     string
	aliases []string
	field   func(r *Requirements) *bool
}

var requirementFlags = []requirementFlag{
	{"give_invoice", []string{"invoice_required", "giveInvoice"}, func(r *Requirements) *bool { return &r.GiveInvoice }},
	{"signature_required", []string{"signature", "requires_signature"}, func(r *Requirements) *bool { return &r.SignatureRequired }},
	{"photos_required", []string{"photo_required", "photos"}, func(r *Requirements) *bool { return &r.PhotosRequired }},
	{"checklist_required", []string{"checlist_required", "checklist"}, func(r *Requirements) *bool { return &r.ChecklistRequired }},
	{"two_person_required", []string{"two_person", "two_people_required"}, func(r *Requirements) *bool { return &r.TwoPersonRequired }},
	{"liftgate_needed", []string{"liftgate_required", "liftgate"}, func(r *Requirements) *bool { return &r.LiftgateNeeded }},
	{"dock_appointment", []string{"dock_appointment_required", "dock_appt"}, func(r *Requirements) *bool { return &r.DockAppointment }},
	{"id_check", []string{"id_check_required", "check_id"}, func(r *Requirements) *bool { return &r.IDCheck }},
	{"temperature_control", []string{"temp_control", "temperature_controlled"}, func(r *Requirements) *bool { return &r.TemperatureControl }},
	{"contactless", []string{"contactless_delivery", "contact_less"}, func(r *Requirements) *bool { return &r.Contactless }},
	{"contact_before", []string{"call_before", "contact_before_arrival"}, func(r *Requirements) *bool { return &r.ContactBefore }},
	{"print_name", []string{"print_name_required", "printed_name"}, func(r *Requirements) *bool { return &r.PrintName }},
}

// RequirementKeys lists the canonical flag keys in display order.
func RequirementKeys() []string {
	keys := make([]string, len(requirementFlags))
	for i, f := range requirementFlags {
		keys[i] = f.key
	}
	return keys
}

// DecodeRequirements reads each flag from its canonical key, falling back to
// its aliases in order. Missing flags are false.
func DecodeRequirements(raw map[string]any) Requirements {
	var r Requirements
	for _, f := range requirementFlags {
		if v, ok := lookupFlag(raw, f.key); ok {
			*f.field(&r) = v
			continue
		}
		for _, alias := range f.aliases {
			if v, ok := lookupFlag(raw, alias); ok {
				*f.field(&r) = v
				break
			}
		}
	}
	return r
}

// EncodeRequirements writes every flag under its canonical key and all of its
// aliases so the remote reads it whichever spelling it expects.
func EncodeRequirements(r Requirements) map[string]bool {
	out := make(map[string]bool, len(requirementFlags)*3)
	for _, f := range requirementFlags {
		v := *f.field(&r)
		out[f.key] = v
		for _, alias := range f.aliases {
			out[alias] = v
		}
	}
	return out
}

// Any reports whether at least one flag is set.
func (r Requirements) Any() bool {
	for _, f := range requirementFlags {
		if *f.field(&r) {
			return true
		}
	}
	return false
}

func (r *Requirements) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = DecodeRequirements(raw)
	return nil
}

func lookupFlag(raw map[string]any, key string) (bool, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		return t != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "on":
			return true, true
		case "false", "no", "n", "off", "":
			return false, true
		}
		if n, err := strconv.ParseFloat(t, 64); err == nil {
			return n != 0, true
		}
	}
	return false, false
}
