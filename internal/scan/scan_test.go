package scan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const richPage = `<!doctype html>
<html><head>
<meta property="og:title" content="Acme Widgets">
<meta property="og:description" content="Widgets for everyone">
<script async src="https://www.googletagmanager.com/gtag/js?id=G-123"></script>
<script src="https://connect.facebook.net/en_US/fbevents.js"></script>
<script src="https://static.klaviyo.com/onsite/js/klaviyo.js"></script>
</head><body>
<form action="/subscribe">
  <input type="email" name="email">
  <input type="text" name="name">
  <button>Join</button>
</form>
<a href="/privacy-policy">Privacy</a>
<a href="https://instagram.com/acme.widgets">IG</a>
</body></html>`

func TestDetect_RichPage(t *testing.T) {
	res := Detect("acme.test", richPage, 400)

	assert.Equal(t, "https://acme.test", res.URL)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.True(t, res.Tags.HasGA4)
	assert.False(t, res.Tags.HasGTM)
	assert.True(t, res.Tags.HasFBPixel)
	assert.True(t, res.Tags.HasKlaviyo)
	assert.True(t, res.Tags.HasConversionForm)
	assert.True(t, res.Tags.HasOpenGraph)
	assert.True(t, res.Tags.HasPrivacyPolicy)
	assert.True(t, res.Tags.IsSecure)
	assert.Equal(t, 2, res.Tags.FormFieldsCount)
	assert.Equal(t, "Acme Widgets", res.Metadata.Title)
	assert.Equal(t, "Widgets for everyone", res.Metadata.Description)
	assert.Equal(t, "instagram.com/acme.widgets", res.SocialLinks.Instagram)
	// 15 + 15 + 20 + 10 + 10 + 15 + 15, capped.
	assert.Equal(t, 100, res.Score)
}

func TestDetect_BarePage(t *testing.T) {
	res := Detect("http://plain.test", "<html><body><p>hello</p></body></html>", 2000)

	assert.False(t, res.Tags.IsSecure)
	assert.False(t, res.Tags.HasConversionForm)
	assert.False(t, res.SocialLinks.Any())
	assert.Equal(t, 0, res.Score)
}

func TestDetect_FormWithoutFields(t *testing.T) {
	res := Detect("https://x.test", "<form action='/x'></form>", 10)
	assert.False(t, res.Tags.HasConversionForm)
}

func TestScore(t *testing.T) {
	assert.Equal(t, 15, Score(Tags{}, 100))
	assert.Equal(t, 0, Score(Tags{}, 1500))
	assert.Equal(t, 45, Score(Tags{HasGA4: true, HasFBPixel: true, HasPrivacyPolicy: true}, 5000))
}

func TestDetect_Untimed(t *testing.T) {
	res := Detect("https://acme.test", "<html><body>hello</body></html>", -5)
	assert.Equal(t, DurationUnknown, res.Duration)
	assert.False(t, res.Timed())
	assert.Equal(t, 10, res.Score, "secure only, no speed points")

	for _, e := range res.Events(1) {
		assert.NotEqual(t, EventServerLatency, e.Name)
	}
	assert.Equal(t, 0, Score(Tags{}, DurationUnknown))
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com", NormalizeURL("example.com"))
	assert.Equal(t, "http://example.com", NormalizeURL(" http://example.com "))
	assert.Equal(t, "https://example.com", NormalizeURL("https://example.com"))
}

func TestResultEvents(t *testing.T) {
	res := Result{
		Status:   StatusSuccess,
		Duration: 250,
		Score:    70,
		Tags: Tags{
			HasGTM:          true,
			HasFBPixel:      true,
			HasMailchimp:    true,
			IsSecure:        true,
			FormFieldsCount: 4,
		},
	}
	evs := res.Events(1234)

	byName := map[string]float64{}
	for _, e := range evs {
		assert.Equal(t, int64(1234), e.Timestamp)
		byName[e.Name] = e.Value
	}
	assert.Equal(t, 1.0, byName[EventGTMDetected])
	assert.Equal(t, 1.0, byName[EventPixelDetected])
	assert.Equal(t, 1.0, byName[EventRetentionTool])
	assert.Equal(t, 1.0, byName[EventSecure])
	assert.Equal(t, 1.0, byName[EventComplianceRisk], "no privacy policy is a compliance risk")
	assert.Equal(t, 250.0, byName[EventServerLatency])
	assert.Equal(t, 70.0, byName[EventAuditScore])
	assert.Equal(t, 4.0, byName[EventFormFrictionScore])
	assert.NotContains(t, byName, EventConversionPoint)
	assert.NotContains(t, byName, EventLegalLayer)
}

func TestResultEvents_FailedScanEmitsNothing(t *testing.T) {
	res := Result{Status: StatusError, Tags: Tags{HasGTM: true}}
	assert.Empty(t, res.Events(1))
}

func TestFetcher_Fetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(richPage))
	}))
	defer srv.Close()

	f := NewFetcher(2 * time.Second)
	res, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, srv.URL, res.URL)
	assert.False(t, res.Tags.IsSecure)
	assert.True(t, res.Tags.HasFBPixel)
	assert.GreaterOrEqual(t, res.Duration, int64(0))
}

func TestFetcher_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewFetcher(time.Second).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestFetcher_EmptyURL(t *testing.T) {
	_, err := NewFetcher(0).Fetch(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyURL)
}

func TestFetcher_RateLimited(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	f := NewFetcher(time.Second).WithRateLimit(0.001, 1)
	_, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.Equal(t, 1, hits)

	assert.Nil(t, f.WithRateLimit(0, 0).Limiter)
}
