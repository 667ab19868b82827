package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// LinkedInURLType represents the type of LinkedIn URL
type LinkedInURLType int

const (
	LinkedInURLTypeUnknown       LinkedInURLType = iota
	LinkedInURLTypeJobView                       // Direct job view: /jobs/view/123
	LinkedInURLTypeJobCollection                 // Job collection: /jobs/collections/recommended/?currentJobId=123
	LinkedInURLTypeNonJob                        // Non-job URLs: profiles, company pages, etc.
)

var (
	linkedInJobViewRegex = regexp.MustCompile(`^/jobs/view/(?:[^/]*-)?(\d+)/?$`)
	numericRegex         = regexp.MustCompile(`^\d+$`)
)

// LinkedInURLInfo contains information about a parsed LinkedIn URL
type LinkedInURLInfo struct {
	Type      LinkedInURLType
	JobID     string
	PublicURL string
}

// IsLinkedInURL checks if a URL is a LinkedIn URL
func IsLinkedInURL(urlStr string) bool {
	if urlStr == "" {
		return false
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	hostname := strings.ToLower(parsedURL.Hostname())
	return hostname == "linkedin.com" || strings.HasSuffix(hostname, ".linkedin.com")
}

// ParseLinkedInURL analyzes a LinkedIn URL and returns its type and job ID
func ParseLinkedInURL(urlStr string) (*LinkedInURLInfo, error) {
	if !IsLinkedInURL(urlStr) {
		return nil, fmt.Errorf("not a LinkedIn URL: %s", urlStr)
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	path := strings.ToLower(parsedURL.Path)
	info := &LinkedInURLInfo{Type: LinkedInURLTypeNonJob}

	if matches := linkedInJobViewRegex.FindStringSubmatch(path); len(matches) > 1 {
		info.Type = LinkedInURLTypeJobView
		info.JobID = matches[1]
		info.PublicURL = LinkedInJobURL(info.JobID)
		return info, nil
	}

	if strings.HasPrefix(path, "/jobs/collections/") || strings.HasPrefix(path, "/jobs/search") {
		if currentJobID := parsedURL.Query().Get("currentJobId"); numericRegex.MatchString(currentJobID) {
			info.Type = LinkedInURLTypeJobCollection
			info.JobID = currentJobID
			info.PublicURL = LinkedInJobURL(info.JobID)
		}
	}

	return info, nil
}

// LinkedInJobURL builds the canonical public URL for a job id
func LinkedInJobURL(jobID string) string {
	return fmt.Sprintf("https://www.linkedin.com/jobs/view/%s/", jobID)
}

// CanonicalLinkedInJobURL converts any LinkedIn job URL form to the public job view URL.
// Non-LinkedIn or non-job URLs are returned with their query string stripped.
func CanonicalLinkedInJobURL(urlStr string) string {
	info, err := ParseLinkedInURL(urlStr)
	if err != nil || info.PublicURL == "" {
		return StripQuery(urlStr)
	}
	return info.PublicURL
}

// ExtractLinkedInJobID extracts the job ID from a LinkedIn job URL
func ExtractLinkedInJobID(urlStr string) (string, error) {
	info, err := ParseLinkedInURL(urlStr)
	if err != nil {
		return "", err
	}

	if info.JobID == "" {
		return "", NewNotJobPostingError(fmt.Sprintf("no job ID found in LinkedIn URL: %s", urlStr))
	}

	return info.JobID, nil
}
