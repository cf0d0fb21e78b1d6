package scan

import "github.com/danielpatrickdp/signal-audit/internal/events"

// Event names emitted for a successful scan.
const (
	EventGTMDetected       = "tech_gtm_detected"
	EventPixelDetected     = "tech_pixel_detected"
	EventConversionPoint   = "conversion_point_detected"
	EventRetentionTool     = "retention_tool_detected"
	EventLegalLayer        = "legal_layer_detected"
	EventSecure            = "is_secure"
	EventActiveAds         = "active_ads_detected"
	EventSocialOG          = "social_og_detected"
	EventSocialPresence    = "social_presence_detected"
	EventComplianceRisk    = "compliance_risk_detected"
	EventServerLatency     = "server_latency_ms"
	EventAuditScore        = "audit_score_generated"
	EventFormFrictionScore = "form_friction_score"
)

// Events translates the result into the event batch appended to the log.
// Only successful scans produce events; every event shares the timestamp ts.
func (r Result) Events(ts int64) []events.Event {
	if r.Status != StatusSuccess {
		return nil
	}

	var out []events.Event
	flag := func(name string, on bool) {
		if on {
			out = append(out, events.Event{Name: name, Timestamp: ts, Value: 1})
		}
	}
	t := r.Tags
	flag(EventGTMDetected, t.HasGA4 || t.HasGTM)
	flag(EventPixelDetected, t.HasFBPixel)
	flag(EventConversionPoint, t.HasConversionForm)
	flag(EventRetentionTool, t.HasKlaviyo || t.HasMailchimp)
	flag(EventLegalLayer, t.HasPrivacyPolicy)
	flag(EventSecure, t.IsSecure)
	flag(EventActiveAds, t.HasGAds)
	flag(EventSocialOG, t.HasOpenGraph)
	flag(EventSocialPresence, r.SocialLinks.Any())
	flag(EventComplianceRisk, !t.IsSecure || !t.HasPrivacyPolicy)

	if r.Timed() {
		out = append(out, events.Event{Name: EventServerLatency, Timestamp: ts, Value: float64(r.Duration)})
	}
	out = append(out,
		events.Event{Name: EventAuditScore, Timestamp: ts, Value: float64(r.Score)},
		events.Event{Name: EventFormFrictionScore, Timestamp: ts, Value: float64(t.FormFieldsCount)},
	)
	return out
}
