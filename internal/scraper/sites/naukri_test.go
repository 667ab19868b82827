package sites

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"letraz-harvester/internal/scraper"
	"letraz-harvester/internal/scraper/scrapertest"
)

const naukriSearchHTML = `<html><body>
<div class="srp-jobtuple-wrapper">
  <div class="row1"><a class="title" href="https://www.naukri.com/job-listings-go-engineer-acme-bengaluru-3-to-5-years-1001">Go Engineer</a></div>
  <div class="row2"><span class="comp-name">Acme</span></div>
  <div class="row3"><span class="loc-wrap"><span class="locWdth">Bengaluru</span></span></div>
  <div class="row4"><span class="sal-wrap"><span>10-15 Lacs PA</span></span></div>
  <div class="row6"><span class="job-post-day">2 Days Ago</span></div>
</div>
<div class="srp-jobtuple-wrapper"><div class="row2"><span class="comp-name">No Title Inc</span></div></div>
<a class="fright fs14 btn-secondary br2" href="/golang-jobs-2">Next</a>
</body></html>`

const naukriRecommendedHTML = `<html><body>
<div class="nI-gNb-sb__user-name">Asha Rao</div>
<article class="jobTuple" data-job-id="555">
  <div class="title">Backend Developer</div>
  <div class="companyWrapper"><span class="subTitle">Beta Corp</span></div>
  <div class="location"><span class="ellipsis">Pune, Mumbai</span></div>
  <div class="experience"><span class="ellipsis">2-5 Yrs</span></div>
  <div class="salary"><span class="ellipsis">Not disclosed</span></div>
  <ul class="tags"><li>Go</li><li>Kafka</li></ul>
  <div class="jobTupleFooter"><span class="type"><span>1 Day Ago</span></span></div>
</article>
</body></html>`

const naukriDetailURL = "https://www.naukri.com/job-listings-go-engineer-acme-1001"

const naukriDetailHTML = `<html><body>
<div class="jd-header-wrapper">
  <h1 class="jd-header-title">Go Engineer</h1>
  <div class="jd-header-comp-name"><a href="/acme-jobs">Acme Pvt Ltd</a></div>
  <span class="exp">3-5 Years</span>
  <span class="loc">Bengaluru</span>
</div>
<div class="details-row"><span class="label">Salary:</span><span class="value">18 LPA</span></div>
<div class="dang-inner-html"><p>Build crawlers. Mail jobs@acme.io</p></div>
<div class="key-skill"><a>Go</a><a>Postgres</a></div>
<div class="apply-button"><a href="/apply/1001">Apply</a></div>
<span class="post-date">Posted 3 days ago</span>
</body></html>`

func TestNaukriBuildSearchURL(t *testing.T) {
	n := NewNaukri(scraper.Timing{})
	assert.Equal(t, "https://www.naukri.com/golang-backend-dev-jobs", n.BuildSearchURL([]string{"Golang", "Backend Dev"}, 1))
	assert.Equal(t, "https://www.naukri.com/golang-backend-dev-jobs-3", n.BuildSearchURL([]string{"Golang", "Backend Dev"}, 3))
}

func TestNaukriParseSummary(t *testing.T) {
	ctx := context.Background()
	n := NewNaukri(scraper.Timing{})
	page := scrapertest.NewSurface(map[string]string{"search": naukriSearchHTML})
	require.NoError(t, page.Navigate(ctx, "search", 0))

	l, err := n.ParseSummary(ctx, page, 0)
	require.NoError(t, err)
	assert.Equal(t, "Go Engineer", l.Title)
	assert.Equal(t, "Acme", l.Company)
	assert.Equal(t, "Bengaluru", l.Location)
	assert.Equal(t, "10-15 Lacs PA", l.Salary)
	assert.Equal(t, "2 Days Ago", l.PostedAt)
	assert.Equal(t, "https://www.naukri.com/job-listings-go-engineer-acme-bengaluru-3-to-5-years-1001", l.URL)

	l, err = n.ParseSummary(ctx, page, 1)
	require.NoError(t, err)
	assert.Empty(t, l.Title)
	assert.Empty(t, l.URL)
	assert.False(t, l.Complete())

	_, err = n.ParseSummary(ctx, page, 5)
	assert.Error(t, err)

	assert.True(t, n.HasNextPage(ctx, page))
}

func TestNaukriRecommendationCardBuildsURLFromJobID(t *testing.T) {
	ctx := context.Background()
	n := NewNaukri(scraper.Timing{})
	page := scrapertest.NewSurface(map[string]string{n.RecommendationsURL(): naukriRecommendedHTML})
	require.NoError(t, page.Navigate(ctx, n.RecommendationsURL(), 0))

	assert.True(t, n.IsLoggedIn(ctx, page))
	assert.Equal(t, "Asha Rao", n.Username(ctx, page))
	assert.False(t, n.HasNextPage(ctx, page))

	l, err := n.ParseRecommendationCard(ctx, page, 0)
	require.NoError(t, err)
	assert.Equal(t, "Backend Developer", l.Title)
	assert.Equal(t, "Beta Corp", l.Company)
	assert.Equal(t, "Pune, Mumbai", l.Location)
	assert.Equal(t, "2-5 Yrs", l.Experience)
	assert.Equal(t, "Not disclosed", l.Salary)
	assert.Equal(t, "Go, Kafka", l.Requirements)
	assert.Equal(t, "1 Day Ago", l.PostedAt)
	assert.Equal(t, "555", l.ExternalID)
	assert.Equal(t, "https://www.naukri.com/job-listings-backend-developer-beta-corp-pune-mumbai-2-to-5-years-555", l.URL)
}

func TestNaukriParseDetail(t *testing.T) {
	ctx := context.Background()
	n := NewNaukri(scraper.Timing{})
	page := scrapertest.NewSurface(map[string]string{naukriDetailURL: naukriDetailHTML})

	l, err := n.ParseDetail(ctx, page, naukriDetailURL)
	require.NoError(t, err)
	assert.Equal(t, "Go Engineer", l.Title)
	assert.Equal(t, "Acme Pvt Ltd", l.Company)
	assert.Equal(t, "Bengaluru", l.Location)
	assert.Equal(t, "3-5 Years", l.Experience)
	assert.Equal(t, "18 LPA", l.Salary)
	assert.Equal(t, "<p>Build crawlers. Mail jobs@acme.io</p>", l.Description)
	assert.Equal(t, "Go, Postgres", l.Requirements)
	assert.Equal(t, "jobs@acme.io", l.Email)
	assert.Equal(t, "https://www.naukri.com/apply/1001", l.ApplyURL)
	assert.Equal(t, "Posted 3 days ago", l.PostedAt)
	assert.Equal(t, "go-engineer-acme-1001", l.ExternalID)
}

func TestNaukriParseDetailNavigationFailure(t *testing.T) {
	n := NewNaukri(scraper.Timing{})
	page := scrapertest.NewSurface(map[string]string{})

	_, err := n.ParseDetail(context.Background(), page, naukriDetailURL)
	assert.Error(t, err)
}

func TestNaukriExternalID(t *testing.T) {
	assert.Equal(t, "abc-123", naukriExternalID("https://www.naukri.com/job-listings-abc-123?src=x"))
	assert.Equal(t, "998", naukriExternalID("https://www.naukri.com/job?jid=998"))
	assert.Empty(t, naukriExternalID("https://www.naukri.com/"))
}
