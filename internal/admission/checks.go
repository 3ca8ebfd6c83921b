package admission

import "widget-gateway/internal/widgets"

// DenialReason is the caller-visible reason code for a denied admission.
// Denials are values, not errors; they are terminal and never retried.
type DenialReason string

const (
	DenyWidgetUnknown      DenialReason = "widget_unknown"
	DenyDomainUnauthorized DenialReason = "domain_unauthorized"
	DenyAccessDenied       DenialReason = "access_denied"
	DenyRateLimited        DenialReason = "rate_limited"
	DenyBudgetExceeded     DenialReason = "budget_exceeded"
)

// FailPolicy decides what happens when a rate-limit or budget query fails
// for infrastructure reasons: allow the call (availability) or deny it
// (strict enforcement). Chosen per deployment, not hardcoded.
type FailPolicy string

const (
	FailOpen   FailPolicy = "open"
	FailClosed FailPolicy = "closed"
)

// ParseFailPolicy maps the config string to a policy, defaulting to fail-open.
func ParseFailPolicy(s string) FailPolicy {
	if s == string(FailClosed) {
		return FailClosed
	}
	return FailOpen
}

// Check identifies one admission check.
type Check string

const (
	CheckDomain      Check = "domain"
	CheckAccessCode  Check = "access_code"
	CheckRateLimit   Check = "rate_limit"
	CheckDailyBudget Check = "daily_budget"
)

// checksByCallType is the closed table of which checks apply per call type.
// Outbound phone calls have no embedding page, so no origin to authorize.
var checksByCallType = map[widgets.CallType][]Check{
	widgets.CallTypeWeb:           {CheckDomain, CheckAccessCode, CheckRateLimit, CheckDailyBudget},
	widgets.CallTypePhoneOutbound: {CheckAccessCode, CheckRateLimit, CheckDailyBudget},
}

// ChecksFor returns the applicable checks for a call type. Unknown types get
// the full web set; there is no path that skips checks by typo.
func ChecksFor(t widgets.CallType) []Check {
	if cs, ok := checksByCallType[t]; ok {
		return cs
	}
	return checksByCallType[widgets.CallTypeWeb]
}

func hasCheck(cs []Check, c Check) bool {
	for _, x := range cs {
		if x == c {
			return true
		}
	}
	return false
}
