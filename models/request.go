package models

// PriceCheckRequest is the payload for POST /api/v1/price-check.
type PriceCheckRequest struct {
	// URL is the product page to check. Required.
	URL string `json:"url" binding:"required,url"`

	// Price is the target price as displayed, e.g. "£199.99" or "199.99".
	// Empty means no target; the response then reports found=false.
	Price string `json:"price,omitempty"`

	// Strict makes an inaccessible page an error (422) instead of an empty
	// result.
	Strict bool `json:"strict,omitempty"`

	// CallbackURL receives the result record asynchronously when set.
	CallbackURL string `json:"callback_url,omitempty" binding:"omitempty,url"`
}
