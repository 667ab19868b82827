package sites

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"letraz-harvester/internal/scraper"
	"letraz-harvester/pkg/models"
	"letraz-harvester/pkg/utils"
)

const (
	naukriBaseURL        = "https://www.naukri.com"
	naukriListSelector   = ".srp-jobtuple-wrapper, .jobTuple, article.jobTuple"
	naukriRecSelector    = ".recommended-job-card, .rec-job-tuple, .jobTuple, .srp-jobtuple-wrapper"
	naukriNextSelector   = "a.fright.fs14.btn-secondary.br2"
	naukriDetailSelector = ".styles_jd-header-wrapper__UJTU4, .jd-header-wrapper, .job-details"
)

var (
	naukriLoggedInSelectors = []string{
		".nI-gNb-drawer__icon",
		".user-prof-icon",
		".nI-gNb-sb__user",
		".view-profile-wrapper",
		".nI-gNb-sb__user-name",
	}
	naukriUsernameSelectors = []string{".nI-gNb-sb__user-name", ".user-name", ".view-profile-wrapper a"}

	naukriExperienceRange = regexp.MustCompile(`(?i)(\d+)\s*-\s*(\d+)\s*yrs?`)
	naukriListingIDRegex  = regexp.MustCompile(`job-listings-([^?#]+)`)
	naukriJIDRegex        = regexp.MustCompile(`jid=(\d+)`)
	nonLetterRegex        = regexp.MustCompile(`[^a-z]`)
)

// Naukri scrapes naukri.com search results, the recommended-jobs feed and job pages
type Naukri struct {
	timing scraper.Timing
}

// NewNaukri creates the naukri adapter
func NewNaukri(timing scraper.Timing) *Naukri {
	return &Naukri{timing: timing}
}

func (n *Naukri) Name() string         { return "naukri" }
func (n *Naukri) BaseURL() string      { return naukriBaseURL }
func (n *Naukri) ListSelector() string { return naukriListSelector }
func (n *Naukri) HomeURL() string      { return naukriBaseURL + "/mnjuser/homepage" }

func (n *Naukri) Capabilities() models.Capabilities {
	return models.Capabilities{
		SupportsRecommendations:     true,
		RequiresLogin:               false,
		RecommendationsRequireLogin: true,
	}
}

// BuildSearchURL produces /<kw>-<kw>-jobs for page 1 and /<kw>-jobs-<n> after that
func (n *Naukri) BuildSearchURL(keywords []string, page int) string {
	query := strings.Join(strings.Fields(strings.ToLower(strings.Join(keywords, "-"))), "-")
	if page <= 1 {
		return fmt.Sprintf("%s/%s-jobs", naukriBaseURL, query)
	}
	return fmt.Sprintf("%s/%s-jobs-%d", naukriBaseURL, query, page)
}

func (n *Naukri) ParseSummary(ctx context.Context, page scraper.Surface, index int) (models.Listing, error) {
	card, err := scraper.Card(ctx, page, naukriListSelector, index)
	if err != nil {
		return models.Listing{}, err
	}

	return models.Listing{
		Title: scraper.FirstText(card, ".title", "a.title", ".jobTupleHeader a", ".row1 a.title", "h2 a", ".info .title"),
		Company: scraper.FirstText(card, ".comp-name", ".companyInfo .subTitle", ".jobTupleHeader .subTitle",
			"a.subTitle", ".company-name", ".row2 .comp-name"),
		Location: scraper.FirstText(card, ".loc-wrap .locWdth", ".loc", ".location", ".locWdth",
			".row3 .loc-wrap span", ".ni-job-tuple-icon-srp-location + span"),
		Salary: scraper.FirstText(card, ".sal-wrap .ni-job-tuple-icon-srp-rupee + span", ".salary", ".sal",
			".row4 .sal-wrap span", ".ni-job-tuple-icon-srp-rupee"),
		URL: utils.ToAbsoluteURL(scraper.FirstAttr(card, "href", "a.title", ".title a", ".jobTupleHeader a", "h2 a",
			`a[href*="/job-listings"]`), naukriBaseURL),
		Description: scraper.FirstText(card, ".job-desc", ".jobTupleFooter .ellipsis", ".row5 .ellipsis", ".job-description"),
		PostedAt:    scraper.FirstText(card, ".job-post-day", ".postDate", ".freshness span", ".row6 span"),
	}, nil
}

func (n *Naukri) HasNextPage(ctx context.Context, page scraper.Surface) bool {
	return scraper.Present(ctx, page, naukriNextSelector)
}

func (n *Naukri) IsLoggedIn(ctx context.Context, page scraper.Surface) bool {
	return scraper.AnyPresent(ctx, page, naukriLoggedInSelectors...)
}

func (n *Naukri) Username(ctx context.Context, page scraper.Surface) string {
	doc, err := scraper.PageDocument(ctx, page)
	if err != nil {
		return ""
	}
	return scraper.FirstText(doc.Selection, naukriUsernameSelectors...)
}

func (n *Naukri) RecommendationsURL() string     { return naukriBaseURL + "/mnjuser/recommendedjobs" }
func (n *Naukri) RecommendationSelector() string { return naukriRecSelector }

// ParseRecommendationCard reads a feed card. Cards rendered without an anchor get a
// listing URL rebuilt from their data-job-id and slugged fields.
func (n *Naukri) ParseRecommendationCard(ctx context.Context, page scraper.Surface, index int) (models.Listing, error) {
	card, err := scraper.Card(ctx, page, naukriRecSelector, index)
	if err != nil {
		return models.Listing{}, err
	}

	l := models.Listing{
		Title:        scraper.FirstText(card, ".title", "a.title", ".rec-job-title", ".jobTupleHeader a", "h2 a"),
		Company:      scraper.FirstText(card, ".companyWrapper .subTitle", ".comp-name", ".companyInfo .subTitle:first-child", "a.subTitle"),
		Location:     scraper.FirstText(card, ".location span.ellipsis", ".location span", ".loc-wrap .locWdth", ".loc span", ".locWdth"),
		Experience:   scraper.FirstText(card, ".experience span.ellipsis", ".experience span", ".exp span", ".expwdth"),
		Salary:       scraper.FirstText(card, ".salary span.ellipsis", ".salary span", ".sal span", ".sal-wrap span"),
		Description:  scraper.FirstText(card, ".job-description", ".job-desc", ".ni-job-tuple-description", ".jobDescription"),
		Requirements: scraper.JoinTexts(card, ".tags li, .tag-li, .skillsList li, .chipLi", ", "),
		PostedAt:     scraper.FirstText(card, ".jobTupleFooter .type span", ".job-post-day span", ".freshness span", ".postDate"),
		ExternalID:   scraper.OwnAttr(card, "data-job-id", "data-jobid"),
	}

	l.URL = utils.ToAbsoluteURL(scraper.FirstAttr(card, "href", "a.title", ".title a", ".rec-job-title a", `a[href*="/job-listings"]`), naukriBaseURL)
	if l.URL == "" && l.ExternalID != "" {
		l.URL = naukriListingURL(l)
	}

	return l, nil
}

// naukriListingURL mirrors the site's own job-listings slug format
func naukriListingURL(l models.Listing) string {
	var parts []string
	for _, field := range []string{l.Title, l.Company, l.Location} {
		if slug := utils.Slugify(field); slug != "" {
			parts = append(parts, slug)
		}
	}
	if l.Experience != "" {
		exp := naukriExperienceRange.ReplaceAllString(strings.ToLower(l.Experience), "$1-to-$2-years")
		parts = append(parts, strings.Join(strings.Fields(exp), "-"))
	}
	parts = append(parts, l.ExternalID)
	return naukriBaseURL + "/job-listings-" + strings.Join(parts, "-")
}

func (n *Naukri) ParseDetail(ctx context.Context, page scraper.Surface, url string) (models.Listing, error) {
	if err := page.Navigate(ctx, url, n.timing.NavigationTimeout); err != nil {
		return models.Listing{}, fmt.Errorf("failed to open job page: %w", err)
	}
	if err := scraper.Sleep(ctx, n.timing.Settle); err != nil {
		return models.Listing{}, err
	}
	page.WaitForSelector(ctx, naukriDetailSelector, n.timing.WaitTimeout)

	doc, err := scraper.PageDocument(ctx, page)
	if err != nil {
		return models.Listing{}, err
	}
	root := doc.Selection

	highlights := naukriHighlights(root)

	description := firstInnerHTML(root, ".styles_JDC__dang-inner-html__h0K4t", ".dang-inner-html", ".job-desc",
		".jobDescriptionText", ".styles_job-desc-container__txpYf", "#job-description", ".jd-desc")

	requirements := scraper.JoinTexts(root, ".styles_key-skill__GIPn_ a, .key-skill a, .chip", ", ")
	if requirements == "" {
		requirements = scraper.FirstText(root, ".styles_key-skill__GIPn_ .chip", ".key-skill .chip", ".chip-container .chip", ".skills-section")
	}

	l := models.Listing{
		Title:        scraper.FirstText(root, ".styles_jd-header-title__rZwM1", ".jd-header-title", ".job-title", "h1.title"),
		Company:      scraper.FirstText(root, ".styles_jd-header-comp-name__MvqAI a", ".jd-header-comp-name a", ".company-name", ".comp-name a"),
		Location:     scraper.FirstText(root, ".styles_jhc__loc___Du2H", ".loc", ".location", ".locWdth"),
		Salary:       utils.GetStringOrDefault(scraper.FirstText(root, ".styles_jhc__salary__jdfEC", ".salary", ".salaryText", ".sal"), highlights["salary"]),
		Experience:   utils.GetStringOrDefault(scraper.FirstText(root, ".styles_jhc__exp__k_giM", ".exp", ".experience"), highlights["experience"]),
		Description:  description,
		Requirements: requirements,
		Email:        utils.ExtractEmail(description),
		ApplyURL:     utils.ToAbsoluteURL(scraper.FirstAttr(root, "href", ".styles_apply-button__uStvl a", ".apply-button a", `a[href*="apply"]`), naukriBaseURL),
		PostedAt:     scraper.FirstText(root, ".styles_jhc__jd-stats__lT29m span:last-child", ".post-date", ".postDate", ".postedDate"),
		ExternalID:   naukriExternalID(utils.GetStringOrDefault(page.CurrentURL(), url)),
	}

	return l, nil
}

// naukriHighlights collects the label/value rows of the job header, keyed by the lowercase letters of the label
func naukriHighlights(root *goquery.Selection) map[string]string {
	highlights := make(map[string]string)
	root.Find(".styles_details__Y424J .styles_detail__lT1PC, .key-value, .details-row").Each(func(_ int, pair *goquery.Selection) {
		label := utils.CleanText(pair.Find(".styles_label__YTVYY, .label, dt").First().Text())
		value := utils.CleanText(pair.Find(".styles_value__BEsNS, .value, dd").First().Text())
		if label != "" && value != "" {
			highlights[nonLetterRegex.ReplaceAllString(strings.ToLower(label), "")] = value
		}
	})
	return highlights
}

func naukriExternalID(url string) string {
	if m := naukriListingIDRegex.FindStringSubmatch(url); len(m) > 1 {
		return m[1]
	}
	if m := naukriJIDRegex.FindStringSubmatch(url); len(m) > 1 {
		return m[1]
	}
	return ""
}

// firstInnerHTML returns the trimmed inner HTML of the first selector with content
func firstInnerHTML(root *goquery.Selection, selectors ...string) string {
	for _, selector := range selectors {
		html, err := root.Find(selector).First().Html()
		if err == nil && strings.TrimSpace(html) != "" {
			return strings.TrimSpace(html)
		}
	}
	return ""
}
