package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Catalog is an in-memory Retriever over a fixed set of endpoint
// documents, ranked by keyword overlap with the query.
//
// It serves deployments without a vector database and is the retriever
// used in tests and examples. Scoring is intentionally simple: each
// query term found in the document's searchable text counts once.
type Catalog struct {
	mu   sync.RWMutex
	docs []Document
}

// NewCatalog creates a catalog over the given documents.
func NewCatalog(docs []Document) *Catalog {
	c := &Catalog{}
	c.Add(docs...)
	return c
}

// Add appends documents to the catalog.
func (c *Catalog) Add(docs ...Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = append(c.docs, docs...)
}

// Len returns the number of documents in the catalog.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Retrieve implements Retriever: the limit highest-scoring documents
// with at least one term match, in descending score order. Ties keep
// catalog order.
func (c *Catalog) Retrieve(ctx context.Context, query string, limit int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	type scored struct {
		doc   Document
		score int
		index int
	}

	var hits []scored
	for i, doc := range c.docs {
		text := strings.ToLower(doc.Method + " " + doc.Path + " " + doc.Content)
		score := 0
		for term := range terms {
			if strings.Contains(text, term) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{doc: doc, score: score, index: i})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].index < hits[j].index
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]Document, len(hits))
	for i, h := range hits {
		results[i] = h.doc
	}
	return results, nil
}

// tokenize lowercases and splits a query into terms, dropping short
// stop-word-like fragments.
func tokenize(query string) map[string]bool {
	terms := make(map[string]bool)
	for _, field := range strings.Fields(strings.ToLower(query)) {
		field = strings.Trim(field, ".,!?\"'()")
		if len(field) < 3 {
			continue
		}
		terms[field] = true
	}
	return terms
}
