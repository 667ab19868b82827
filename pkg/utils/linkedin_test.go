package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fmtWrap(err error) error {
	return fmt.Errorf("outer: %w", err)
}

func TestParseLinkedInURL(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		typ    LinkedInURLType
		jobID  string
		public string
	}{
		{"job view", "https://www.linkedin.com/jobs/view/3812345678/?refId=abc", LinkedInURLTypeJobView, "3812345678", "https://www.linkedin.com/jobs/view/3812345678/"},
		{"slugged job view", "https://www.linkedin.com/jobs/view/go-engineer-at-acme-3812345678", LinkedInURLTypeJobView, "3812345678", "https://www.linkedin.com/jobs/view/3812345678/"},
		{"collection", "https://www.linkedin.com/jobs/collections/recommended/?currentJobId=42", LinkedInURLTypeJobCollection, "42", "https://www.linkedin.com/jobs/view/42/"},
		{"collection without id", "https://www.linkedin.com/jobs/collections/recommended/", LinkedInURLTypeNonJob, "", ""},
		{"profile", "https://www.linkedin.com/in/someone", LinkedInURLTypeNonJob, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseLinkedInURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, info.Type)
			assert.Equal(t, tt.jobID, info.JobID)
			assert.Equal(t, tt.public, info.PublicURL)
		})
	}

	_, err := ParseLinkedInURL("https://www.naukri.com/job-listings-1")
	assert.Error(t, err)
}

func TestCanonicalLinkedInJobURL(t *testing.T) {
	assert.Equal(t, "https://www.linkedin.com/jobs/view/99/", CanonicalLinkedInJobURL("https://www.linkedin.com/jobs/view/99?trk=x"))
	assert.Equal(t, "https://www.linkedin.com/company/acme", CanonicalLinkedInJobURL("https://www.linkedin.com/company/acme?x=1"))
}

func TestExtractLinkedInJobID(t *testing.T) {
	id, err := ExtractLinkedInJobID("https://www.linkedin.com/jobs/view/123/")
	require.NoError(t, err)
	assert.Equal(t, "123", id)

	_, err = ExtractLinkedInJobID("https://www.linkedin.com/feed/")
	assert.Error(t, err)
}
