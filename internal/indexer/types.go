package indexer

import (
	"net/http"
	"time"
)

// Document is one indexed page.
type Document struct {
	ID           string   `json:"id" yaml:"id"`
	URL          string   `json:"url" yaml:"url"`
	Title        string   `json:"title" yaml:"title"`
	Description  string   `json:"description" yaml:"description"`
	CanonicalURL string   `json:"canonical_url" yaml:"canonical_url"`
	SummaryText  string   `json:"summary_text" yaml:"summary_text"`
	FullText     []string `json:"full_text" yaml:"full_text"`
}

// Metadata projects the lightweight fields of the document.
func (d Document) Metadata() DocumentMetadata {
	return DocumentMetadata{
		ID:          d.ID,
		URL:         d.URL,
		Title:       d.Title,
		Description: d.Description,
	}
}

// DocumentMetadata is the read-only projection loaded for corpus-wide passes.
type DocumentMetadata struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Words is one (document, term) frequency fact. Count includes the
// title and description boosts.
type Words struct {
	ID       string `json:"id"`
	Document string `json:"document"`
	Word     string `json:"word"`
	Count    int32  `json:"count"`
}

// TfIdfScore is one derived (word, document) relevance fact.
type TfIdfScore struct {
	ID         string  `json:"id"`
	Word       string  `json:"word"`
	DocumentID string  `json:"document_id"`
	URL        string  `json:"url"`
	TF         float64 `json:"tf"`
	IDF        float64 `json:"idf"`
	TFIDF      float64 `json:"tf_idf"`
}

// Outcome is the terminal state of one URL pipeline.
type Outcome string

// Pipeline outcomes.
const (
	OutcomeURLExists          Outcome = "url_exists"
	OutcomeURLError           Outcome = "url_error"
	OutcomeInvalidExtension   Outcome = "invalid_extension"
	OutcomeFetchError         Outcome = "fetch_error"
	OutcomeTransactionSuccess Outcome = "transaction_success"
	OutcomeTransactionError   Outcome = "transaction_error"
)

// Outcomes lists every outcome in reporting order.
func Outcomes() []Outcome {
	return []Outcome{
		OutcomeURLExists,
		OutcomeURLError,
		OutcomeInvalidExtension,
		OutcomeFetchError,
		OutcomeTransactionSuccess,
		OutcomeTransactionError,
	}
}

// Failed reports whether the outcome counts against the run.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeURLError, OutcomeFetchError, OutcomeTransactionError:
		return true
	default:
		return false
	}
}

// FetchResponse captures the body of a GET.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Summary aggregates the outcomes of one crawl run.
type Summary struct {
	RunID      string          `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time       `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Total      int             `json:"total" yaml:"total"`
	Completed  int             `json:"completed" yaml:"completed"`
	Outcomes   map[Outcome]int `json:"outcomes" yaml:"outcomes"`
}

// Failures totals the failed outcomes.
func (s Summary) Failures() int {
	n := 0
	for outcome, count := range s.Outcomes {
		if outcome.Failed() {
			n += count
		}
	}
	return n
}
