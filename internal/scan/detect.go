package scan

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// #region signatures

type signature struct {
	set     func(*Tags)
	needles []string
}

// signatures are matched case-sensitively against the raw document.
var signatures = []signature{
	{func(t *Tags) { t.HasFBPixel = true }, []string{"fbevents.js", "connect.facebook.net"}},
	{func(t *Tags) { t.HasGA4 = true }, []string{"googletagmanager.com/gtag/js", "ga('create'"}},
	{func(t *Tags) { t.HasGTM = true }, []string{"googletagmanager.com/gtm.js"}},
	{func(t *Tags) { t.HasGAds = true }, []string{"googleadservices.com/pagead/conversion.js", "ads.google.com"}},
	{func(t *Tags) { t.HasTikTok = true }, []string{"analytics.tiktok.com"}},
	{func(t *Tags) { t.HasLinkedIn = true }, []string{"snap.licdn.com", "linkedin.com/insight"}},
	{func(t *Tags) { t.HasPinterest = true }, []string{"pinterest.com/js/pinit.js"}},
	{func(t *Tags) { t.HasSegment = true }, []string{"cdn.segment.com"}},
	{func(t *Tags) { t.HasHotjar = true }, []string{"static.hotjar.com"}},
	{func(t *Tags) { t.HasKlaviyo = true }, []string{"static.klaviyo.com"}},
	{func(t *Tags) { t.HasMailchimp = true }, []string{"chimpstatic.com"}},
}

var privacyNeedles = []string{"privacy-policy", "politica-de-privacidad", "terms"}

var (
	instagramRe = regexp.MustCompile(`instagram\.com/([a-zA-Z0-9_.]+)`)
	facebookRe  = regexp.MustCompile(`facebook\.com/([a-zA-Z0-9_.]+)`)
	linkedinRe  = regexp.MustCompile(`linkedin\.com/company/([a-zA-Z0-9_-]+)`)
	tiktokRe    = regexp.MustCompile(`tiktok\.com/@([a-zA-Z0-9_-]+)`)
)

// #endregion signatures

// #region detect

// Detect inspects a document and builds a successful Result. A negative
// durationMs means the document was not timed.
func Detect(url, doc string, durationMs int64) Result {
	url = NormalizeURL(url)
	lower := strings.ToLower(doc)

	var tags Tags
	for _, sig := range signatures {
		for _, n := range sig.needles {
			if strings.Contains(doc, n) {
				sig.set(&tags)
				break
			}
		}
	}
	for _, n := range privacyNeedles {
		if strings.Contains(lower, n) {
			tags.HasPrivacyPolicy = true
			break
		}
	}
	tags.HasOpenGraph = strings.Contains(lower, "og:title") || strings.Contains(lower, "og:image")
	tags.IsSecure = strings.HasPrefix(url, "https")

	st := walk(doc)
	tags.FormFieldsCount = st.inputs
	tags.HasConversionForm = st.forms > 0 && (st.inputs > 0 || st.submits > 0)

	if durationMs < 0 {
		durationMs = DurationUnknown
	}
	res := Result{
		URL:      url,
		Duration: durationMs,
		Tags:     tags,
		SocialLinks: SocialLinks{
			Instagram: instagramRe.FindString(doc),
			Facebook:  facebookRe.FindString(doc),
			LinkedIn:  linkedinRe.FindString(doc),
			TikTok:    tiktokRe.FindString(doc),
		},
		Metadata: st.meta,
		Status:   StatusSuccess,
	}
	res.Score = Score(tags, durationMs)
	return res
}

// NormalizeURL prefixes https:// when no http(s) scheme is present.
func NormalizeURL(url string) string {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "http") {
		return "https://" + url
	}
	return url
}

// #endregion detect

// #region score

// Score is the audit heuristic, capped at 100. Untimed results get no speed
// points.
func Score(tags Tags, durationMs int64) int {
	points := 0
	if tags.HasGA4 {
		points += 15
	}
	if tags.HasFBPixel {
		points += 15
	}
	if tags.HasConversionForm {
		points += 20
	}
	if tags.HasOpenGraph {
		points += 10
	}
	if tags.IsSecure {
		points += 10
	}
	if tags.HasPrivacyPolicy {
		points += 15
	}
	if durationMs >= 0 && durationMs < 1500 {
		points += 15
	}
	return min(points, 100)
}

// #endregion score

// #region walk

type docStats struct {
	forms   int
	inputs  int
	submits int
	meta    Metadata
}

func walk(doc string) docStats {
	var st docStats
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return st
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "form":
				st.forms++
			case "input":
				st.inputs++
				if strings.EqualFold(attr(tok, "type"), "submit") {
					st.submits++
				}
			case "button":
				if t := strings.ToLower(attr(tok, "type")); t == "" || t == "submit" {
					st.submits++
				}
			case "meta":
				switch strings.ToLower(attr(tok, "property")) {
				case "og:title":
					st.meta.Title = attr(tok, "content")
				case "og:description":
					st.meta.Description = attr(tok, "content")
				}
			}
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// #endregion walk
