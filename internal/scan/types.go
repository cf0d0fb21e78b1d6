// Package scan detects martech signatures in a page and turns a scan result
// into the fixed event vocabulary the evaluation engine consumes.
package scan

// Status values for Result.Status.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// TypeWeb is the only supported scan request type.
const TypeWeb = "web"

// DurationUnknown marks a result whose document was not fetched, so no
// response time was measured.
const DurationUnknown int64 = -1

// Tags records which technology signatures were found.
type Tags struct {
	HasGA4            bool `json:"hasGA4"`
	HasGTM            bool `json:"hasGTM"`
	HasFBPixel        bool `json:"hasFBPixel"`
	HasGAds           bool `json:"hasGAds"`
	HasTikTok         bool `json:"hasTikTok"`
	HasLinkedIn       bool `json:"hasLinkedIn"`
	HasPinterest      bool `json:"hasPinterest"`
	HasSegment        bool `json:"hasSegment"`
	HasHotjar         bool `json:"hasHotjar"`
	HasKlaviyo        bool `json:"hasKlaviyo"`
	HasMailchimp      bool `json:"hasMailchimp"`
	HasConversionForm bool `json:"hasConversionForm"`
	HasOpenGraph      bool `json:"hasOpenGraph"`
	HasPrivacyPolicy  bool `json:"hasPrivacyPolicy"`
	IsSecure          bool `json:"isSecure"`
	FormFieldsCount   int  `json:"formFieldsCount"`
}

// SocialLinks holds the first profile link found per network.
type SocialLinks struct {
	Instagram string `json:"instagram,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	TikTok    string `json:"tiktok,omitempty"`
}

// Timed reports whether Duration is a measured response time.
func (r Result) Timed() bool {
	return r.Duration >= 0
}

// Any reports whether at least one link was found.
func (l SocialLinks) Any() bool {
	return l.Instagram != "" || l.Facebook != "" || l.LinkedIn != "" || l.TikTok != ""
}

// Metadata is the page's OpenGraph summary.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Result is the payload a scan hands to the engine.
type Result struct {
	URL         string      `json:"url"`
	Duration    int64       `json:"duration"` // ms, DurationUnknown when untimed
	Score       int         `json:"score"`    // 0..100
	Tags        Tags        `json:"tags"`
	SocialLinks SocialLinks `json:"socialLinks"`
	Metadata    Metadata    `json:"socialMetadata"`
	Status      string      `json:"status"`
}
