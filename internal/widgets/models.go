package widgets

import "time"

// Widget is a configured embeddable voice-call entry point with its own
// security and usage policy.
//
// The admission core reads widgets and never mutates them; ownership and
// dashboard editing live outside this service.
//
// Policy fields:
// - AllowedDomains is the raw allow-list string (patterns joined by the
//   domains.PatternDelimiter). Empty means deny all.
// - RateLimitPerWindow of 0 means "use the system default threshold".
// - DailyMinutesLimit only applies when DailyMinutesEnabled is true.
// - AccessCode empty means no access code is required.
type Widget struct {
	ID        string `json:"id" db:"id"`
	AccountID string `json:"account_id" db:"account_id"`
	Name      string `json:"name" db:"name"`

	AllowedDomains string   `json:"allowed_domains" db:"allowed_domains"`
	CallType       CallType `json:"call_type" db:"call_type"`

	RateLimitPerWindow  int    `json:"rate_limit_per_window" db:"rate_limit_per_window"`
	DailyMinutesEnabled bool   `json:"daily_minutes_enabled" db:"daily_minutes_enabled"`
	DailyMinutesLimit   int    `json:"daily_minutes_limit" db:"daily_minutes_limit"`
	AccessCode          string `json:"-" db:"access_code"`

	// Provider credentials are opaque to the gateway and passed through to
	// the external call-creation service. Never logged.
	ProviderAPIKey  string `json:"-" db:"provider_api_key"`
	ProviderAgentID string `json:"provider_agent_id" db:"provider_agent_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RequiresAccessCode reports whether callers must present the widget's code.
func (w Widget) RequiresAccessCode() bool { return w.AccessCode != "" }

// CallType classifies how a widget initiates calls. Keep this set closed;
// the admission controller maps each variant to its applicable checks.
type CallType string

const (
	// CallTypeWeb is a browser-embedded widget; calls originate from a page.
	CallTypeWeb CallType = "web"
	// CallTypePhoneOutbound dials the visitor's phone; no embedding origin exists.
	CallTypePhoneOutbound CallType = "phone_outbound"
)

// Valid reports whether t is a known call type.
func (t CallType) Valid() bool {
	switch t {
	case CallTypeWeb, CallTypePhoneOutbound:
		return true
	default:
		return false
	}
}
