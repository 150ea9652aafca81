// Package retrieval implements the endpoint documentation retrieval
// workflow: fetch candidate documents, grade them for relevance, and
// retry with a rewritten query when too few survive grading.
package retrieval

// Document is a retrievable piece of API endpoint documentation.
type Document struct {
	// OperationID uniquely identifies the endpoint operation. It is the
	// deduplication key across retrieval rounds.
	OperationID string `json:"operation_id"`

	// Method is the HTTP method of the endpoint.
	Method string `json:"method"`

	// Path is the endpoint's URL path template.
	Path string `json:"path"`

	// Content is the documentation text presented to the model.
	Content string `json:"content"`

	// Metadata carries additional attributes (tags, version) that some
	// retrievers attach.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Config bounds the retrieval workflow.
type Config struct {
	// BatchSize is how many candidates each retrieval round fetches.
	BatchSize int

	// RetryThreshold is the relevant-document count at or below which a
	// round is considered too thin and a retry is attempted.
	RetryThreshold int

	// MaxRetries caps the number of query rewrites per workflow run.
	MaxRetries int
}

// DefaultConfig returns the standard retrieval bounds.
func DefaultConfig() Config {
	return Config{
		BatchSize:      8,
		RetryThreshold: 2,
		MaxRetries:     2,
	}
}

// normalize fixes unusable values. A zero RetryThreshold or MaxRetries
// is legitimate (retry only on empty rounds, or never); start from
// DefaultConfig when the standard bounds are wanted.
func (c Config) normalize() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultConfig().BatchSize
	}
	if c.RetryThreshold < 0 {
		c.RetryThreshold = 0
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}
