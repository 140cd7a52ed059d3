package dto

// QuotaExceededDTO is the error body returned when a request would exceed a
// feature limit.
type QuotaExceededDTO struct {
	Allowed         bool   `json:"allowed"`
	Error           string `json:"error"`
	Feature         string `json:"feature"`
	Limit           int64  `json:"limit"`
	Used            int64  `json:"used"`
	Remaining       int64  `json:"remaining"`
	UpgradeRequired bool   `json:"upgrade_required"`
}

// QuotaCheckRequestDTO is the body for a standalone storage quota check.
type QuotaCheckRequestDTO struct {
	IncomingBytes int64 `json:"incoming_bytes" validate:"omitempty,min=0"`
}

// QuotaCheckResponseDTO reports the storage allowance for a prospective
// upload. Error and UpgradeRequired are only populated on a denial.
type QuotaCheckResponseDTO struct {
	Allowed         bool   `json:"allowed"`
	Error           string `json:"error,omitempty"`
	CapBytes        int64  `json:"cap_bytes"`
	UsedBytes       int64  `json:"used_bytes"`
	RemainingBytes  int64  `json:"remaining_bytes"`
	UpgradeRequired bool   `json:"upgrade_required,omitempty"`
}

// FeatureUsageDTO is one feature's accounting in the usage summary.
type FeatureUsageDTO struct {
	Feature   string `json:"feature"`
	LimitType string `json:"limit_type"`
	Limit     int64  `json:"limit"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
}

// UsageSummaryResponseDTO is the per-user usage summary for the current
// billing period.
type UsageSummaryResponseDTO struct {
	Tier     string            `json:"tier"`
	Features []FeatureUsageDTO `json:"features"`
}
