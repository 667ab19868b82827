package sites

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"letraz-harvester/internal/scraper"
	"letraz-harvester/pkg/models"
	"letraz-harvester/pkg/utils"
)

const (
	linkedInBaseURL      = "https://www.linkedin.com"
	linkedInListSelector = "main ul > li, .jobs-search-results__list-item, .job-card-container, .base-search-card"
	linkedInRecSelector  = "main ul > li, .scaffold-layout__list-item, .jobs-search-results__list-item, .job-card-container"
	linkedInNextSelector = `button[aria-label="Next"], button[aria-label="View next page"]`
	linkedInMoreSelector = `button.jobs-description__footer-button, button.show-more-less-html__button, button[aria-label*="more"]`
	linkedInPageSize     = 25
)

var (
	linkedInLoggedInSelectors = []string{
		".global-nav__me-photo",
		".feed-identity-module",
		".global-nav__me-content",
		".profile-rail-card__actor-link",
		"img.global-nav__me-photo",
	}
	linkedInUsernameSelectors = []string{".feed-identity-module__actor-meta", ".profile-rail-card__actor-link", ".global-nav__me-content"}
	linkedInWorkTypes         = map[string]bool{
		"Remote": true, "Hybrid": true, "On-site": true,
		"Full-time": true, "Part-time": true, "Contract": true,
	}
	// texts containing any of these are never a company name
	linkedInCompanyExclusions = []string{"Remote", "India", "ago", "Apply", "Promoted", "Viewed"}
)

// LinkedIn scrapes remote-filtered LinkedIn job search, the recommended collection and job pages
type LinkedIn struct {
	timing   scraper.Timing
	location string
}

// NewLinkedIn creates the LinkedIn adapter. Searches are restricted to remote roles in location.
func NewLinkedIn(timing scraper.Timing) *LinkedIn {
	return &LinkedIn{timing: timing, location: "India"}
}

func (l *LinkedIn) Name() string         { return "linkedin" }
func (l *LinkedIn) BaseURL() string      { return linkedInBaseURL }
func (l *LinkedIn) ListSelector() string { return linkedInListSelector }
func (l *LinkedIn) HomeURL() string      { return linkedInBaseURL + "/feed/" }

func (l *LinkedIn) Capabilities() models.Capabilities {
	return models.Capabilities{
		SupportsRecommendations:     true,
		RequiresLogin:               false,
		RecommendationsRequireLogin: true,
	}
}

// BuildSearchURL pages with start offsets of 25; f_WT=2 is the remote filter
func (l *LinkedIn) BuildSearchURL(keywords []string, page int) string {
	if page < 1 {
		page = 1
	}
	return fmt.Sprintf("%s/jobs/search/?keywords=%s&location=%s&f_WT=2&start=%d",
		linkedInBaseURL, componentEscape(strings.Join(keywords, " ")), componentEscape(l.location), (page-1)*linkedInPageSize)
}

func (l *LinkedIn) ParseSummary(ctx context.Context, page scraper.Surface, index int) (models.Listing, error) {
	card, err := scraper.Card(ctx, page, linkedInListSelector, index)
	if err != nil {
		return models.Listing{}, err
	}

	jobURL, title := linkedInJobLink(card)
	company, location, postedAt := linkedInLeafFields(card, title)

	listing := models.Listing{
		Title: utils.GetStringOrDefault(title, scraper.FirstText(card,
			".job-card-list__title", ".base-search-card__title", `a[href*="/jobs/view/"] span`, "strong")),
		Company: utils.GetStringOrDefault(company, scraper.FirstText(card,
			".job-card-container__company-name", ".base-search-card__subtitle")),
		Location: utils.GetStringOrDefault(location, scraper.FirstText(card,
			".job-card-container__metadata-item", ".job-search-card__location")),
		PostedAt: utils.GetStringOrDefault(postedAt, scraper.FirstText(card,
			"time", ".job-search-card__listdate")),
		URL: jobURL,
	}
	if listing.URL == "" {
		href := scraper.FirstAttr(card, "href", `a[href*="/jobs/view/"]`, "a.job-card-container__link", "a.base-card__full-link")
		if href != "" {
			listing.URL = utils.CanonicalLinkedInJobURL(utils.ToAbsoluteURL(href, linkedInBaseURL))
		}
	}
	listing.ExternalID, _ = utils.ExtractLinkedInJobID(listing.URL)

	return listing, nil
}

// linkedInJobLink finds the first /jobs/view/ anchor. Its text is the title
// unless it is too short or is the Easy Apply badge.
func linkedInJobLink(card *goquery.Selection) (jobURL, title string) {
	card.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.Contains(href, "/jobs/view/") {
			return true
		}
		jobURL = utils.CanonicalLinkedInJobURL(utils.ToAbsoluteURL(href, linkedInBaseURL))
		text := utils.CleanText(a.Text())
		if utf8.RuneCountInString(text) > 5 && !strings.Contains(text, "Easy Apply") {
			title = text
		}
		return false
	})
	return jobURL, title
}

// linkedInLeafFields reads company, location and posting age from childless div/span text
func linkedInLeafFields(card *goquery.Selection, title string) (company, location, postedAt string) {
	card.Find("div, span").Each(func(_ int, el *goquery.Selection) {
		if el.Children().Length() > 0 {
			return
		}
		text := utils.CleanText(el.Text())
		n := utf8.RuneCountInString(text)
		if text == "" {
			return
		}

		switch {
		case company == "" && text != title && n > 1 && n < 100 && !containsAny(text, linkedInCompanyExclusions):
			company = text
		case location == "" && n < 100 && containsAny(text, []string{"Remote", "India", "Hybrid"}):
			location = text
		case postedAt == "" && n < 30 && strings.Contains(text, "ago"):
			postedAt = text
		}
	})
	return company, location, postedAt
}

// componentEscape escapes like encodeURIComponent, spaces as %20
func componentEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func (l *LinkedIn) HasNextPage(ctx context.Context, page scraper.Surface) bool {
	return scraper.Present(ctx, page, linkedInNextSelector)
}

func (l *LinkedIn) IsLoggedIn(ctx context.Context, page scraper.Surface) bool {
	return scraper.AnyPresent(ctx, page, linkedInLoggedInSelectors...)
}

func (l *LinkedIn) Username(ctx context.Context, page scraper.Surface) string {
	doc, err := scraper.PageDocument(ctx, page)
	if err != nil {
		return ""
	}
	return scraper.FirstText(doc.Selection, linkedInUsernameSelectors...)
}

func (l *LinkedIn) RecommendationsURL() string     { return linkedInBaseURL + "/jobs/collections/recommended/" }
func (l *LinkedIn) RecommendationSelector() string { return linkedInRecSelector }

// ParseRecommendationCard reads a collection card. Cards without a job anchor
// fall back to the data-job-id attributes for both the id and the URL.
func (l *LinkedIn) ParseRecommendationCard(ctx context.Context, page scraper.Surface, index int) (models.Listing, error) {
	card, err := scraper.Card(ctx, page, linkedInRecSelector, index)
	if err != nil {
		return models.Listing{}, err
	}

	jobURL, title := linkedInJobLink(card)
	company, location, postedAt := linkedInLeafFields(card, title)

	listing := models.Listing{
		Title:    title,
		Company:  company,
		Location: location,
		PostedAt: postedAt,
		URL:      jobURL,
	}

	listing.ExternalID, _ = utils.ExtractLinkedInJobID(jobURL)
	if listing.ExternalID == "" {
		listing.ExternalID = scraper.OwnAttr(card, "data-job-id", "data-occludable-job-id")
		if listing.ExternalID == "" {
			listing.ExternalID = scraper.FirstAttr(card, "data-job-id", "[data-job-id]")
		}
	}
	if listing.URL == "" && listing.ExternalID != "" {
		listing.URL = utils.LinkedInJobURL(listing.ExternalID)
	}

	return listing, nil
}

func (l *LinkedIn) ParseDetail(ctx context.Context, page scraper.Surface, jobURL string) (models.Listing, error) {
	if err := page.Navigate(ctx, jobURL, l.timing.NavigationTimeout); err != nil {
		return models.Listing{}, fmt.Errorf("failed to open job page: %w", err)
	}
	if err := scraper.Sleep(ctx, l.timing.SlowSettle); err != nil {
		return models.Listing{}, err
	}
	page.WaitForSelector(ctx, "h2, main", l.timing.WaitTimeout)

	// expanding the description is best effort
	if scraper.Present(ctx, page, linkedInMoreSelector) {
		if err := page.Click(ctx, linkedInMoreSelector); err == nil {
			_ = scraper.Sleep(ctx, l.timing.Settle/4)
		}
	}

	doc, err := scraper.PageDocument(ctx, page)
	if err != nil {
		return models.Listing{}, err
	}
	root := doc.Selection

	main := root.Find("main main").First()
	if main.Length() == 0 {
		main = root.Find("main").First()
	}

	listing := models.Listing{
		Company:      linkedInDetailCompany(root),
		Title:        linkedInDetailTitle(root),
		Description:  linkedInDescription(root),
		Requirements: linkedInWorkTypeList(root),
	}

	main.Find("div, span").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := utils.CleanText(el.Text())
		n := utf8.RuneCountInString(text)
		if text == "" || n >= 100 {
			return true
		}
		if listing.Location == "" && containsAny(text, []string{"Remote", "India", "Hybrid"}) &&
			!containsAny(text, []string{"About", "Apply"}) {
			listing.Location = text
		}
		if listing.PostedAt == "" && n < 50 && strings.Contains(text, "ago") {
			listing.PostedAt = text
		}
		if listing.Salary == "" && containsAny(text, []string{"$", "₹", "LPA"}) {
			listing.Salary = text
		}
		return listing.Location == "" || listing.PostedAt == "" || listing.Salary == ""
	})

	listing.Email = utils.ExtractEmail(listing.Description)
	listing.ExternalID, _ = utils.ExtractLinkedInJobID(utils.GetStringOrDefault(page.CurrentURL(), jobURL))

	return listing, nil
}

func linkedInDetailCompany(root *goquery.Selection) string {
	var company string
	root.Find(`a[href*="/company/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := utils.CleanText(a.Text())
		if text != "" && utf8.RuneCountInString(text) < 100 && !strings.Contains(text, "followers") {
			company = text
			return false
		}
		return true
	})
	return company
}

func linkedInDetailTitle(root *goquery.Selection) string {
	var title string
	root.Find(`[role="toolbar"]`).First().Find("div, span").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := utils.CleanText(el.Text())
		n := utf8.RuneCountInString(text)
		if n > 10 && n < 200 && !containsAny(text, []string{"•", "Save", "Apply"}) {
			title = text
			return false
		}
		return true
	})
	if title == "" {
		title = utils.CleanText(root.Find("h1").First().Text())
	}
	return title
}

// linkedInDescription collects the sibling blocks after the "About the job" heading
// up to the next section, falling back to the longest paragraph over 200 characters
func linkedInDescription(root *goquery.Selection) string {
	var heading *goquery.Selection
	root.Find("h2").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(h.Text()), "about the job") {
			heading = h
			return false
		}
		return true
	})

	if heading != nil {
		var parts []string
		for el := heading.Parent().Next(); el.Length() > 0; el = el.Next() {
			if h2 := el.Find("h2"); h2.Length() > 0 && !strings.Contains(strings.ToLower(h2.Text()), "about the job") {
				break
			}
			if strings.Contains(el.Text(), "Requirements added by") {
				break
			}
			if html, err := el.Html(); err == nil && strings.TrimSpace(html) != "" {
				parts = append(parts, strings.TrimSpace(html))
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}

	var longest string
	root.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if utf8.RuneCountInString(text) > 200 && len(text) > len(longest) {
			longest = text
		}
	})
	return longest
}

// linkedInWorkTypeList joins the work-type buttons in page order, each once.
// LinkedIn renders the same buttons in the header and the sticky bar.
func linkedInWorkTypeList(root *goquery.Selection) string {
	var types []string
	seen := make(map[string]bool)
	root.Find("button").Each(func(_ int, b *goquery.Selection) {
		if text := utils.CleanText(b.Text()); linkedInWorkTypes[text] && !seen[text] {
			seen[text] = true
			types = append(types, text)
		}
	})
	return strings.Join(types, ", ")
}
