package library

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/tluyben/lawyeredup/log"
)

type (
	// Library is a full-text index of contract documents. It is safe for
	// concurrent use
	Library struct {
		index bleve.Index
		path  string
		log   *slog.Logger
	}

	// Document is one contract stored in the library
	Document struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Type    string `json:"type,omitempty"`
		Content string `json:"content"`
	}

	// Hit is a search match
	Hit struct {
		ID      string  `json:"id"`
		Title   string  `json:"title"`
		Score   float64 `json:"score"`
		Snippet string  `json:"snippet,omitempty"`
	}
)

const (
	DefaultLimit = 10
	maxBatchSize = 100

	indexMetaFile = "index_meta.json"
)

var (
	ErrNotFound   = errors.New("document not found")
	ErrMissingID  = errors.New("document id is required")
	ErrEmptyQuery = errors.New("search query is empty")
	ErrNotIndex   = errors.New("path exists but is not a library index")
)

// Open opens the index at path, creating it when it does not exist. An
// existing index that cannot be opened is deleted and created again; any
// other existing path is left untouched and reported as ErrNotIndex
func Open(path string, logger *slog.Logger) (*Library, error) {
	if logger == nil {
		logger = slog.Default()
	}
	idx, err := bleve.Open(path)
	switch {
	case errors.Is(err, bleve.ErrorIndexPathDoesNotExist):
		logger.Info("creating library index", slog.String("path", path))
		idx, err = bleve.New(path, newMapping())
		if err != nil {
			return nil, fmt.Errorf("error creating new index: %w", err)
		}
	case err != nil && !isIndexDir(path):
		return nil, fmt.Errorf("%w: %s: %w", ErrNotIndex, path, err)
	case err != nil:
		logger.Warn("recreating unreadable library index",
			slog.String("path", path), log.Error(err),
		)
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("error deleting corrupted index: %w", err)
		}
		idx, err = bleve.New(path, newMapping())
		if err != nil {
			return nil, fmt.Errorf("error creating new index after deletion: %w", err)
		}
	}
	return &Library{index: idx, path: path, log: logger}, nil
}

// OpenMem creates an index that lives only in memory
func OpenMem(logger *slog.Logger) (*Library, error) {
	if logger == nil {
		logger = slog.Default()
	}
	idx, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, err
	}
	return &Library{index: idx, log: logger}, nil
}

// isIndexDir reports whether path holds the metadata file bleve writes
// into every index directory
func isIndexDir(path string) bool {
	info, err := os.Stat(filepath.Join(path, indexMetaFile))
	return err == nil && !info.IsDir()
}

func newMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Store = true

	keyword := bleve.NewKeywordFieldMapping()
	keyword.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("title", text)
	doc.AddFieldMappingsAt("content", text)
	doc.AddFieldMappingsAt("type", keyword)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Close releases the index
func (l *Library) Close() error {
	return l.index.Close()
}

// Add indexes a document, replacing any document with the same ID
func (l *Library) Add(doc *Document) error {
	if doc.ID == "" {
		return ErrMissingID
	}
	if doc.Title == "" {
		doc.Title = titleFromID(doc.ID)
	}
	if err := l.index.Index(doc.ID, doc); err != nil {
		return fmt.Errorf("error indexing %s: %w", doc.ID, err)
	}
	return nil
}

// Count returns the number of indexed documents
func (l *Library) Count() (uint64, error) {
	return l.index.DocCount()
}

// IndexDir adds every text file below dir, keyed by its path relative to
// dir. Binary and unreadable files are skipped. It returns the number of
// documents indexed
func (l *Library) IndexDir(dir string) (int, error) {
	indexAbs := ""
	if l.path != "" {
		indexAbs, _ = filepath.Abs(l.path)
	}

	batch := l.index.NewBatch()
	total := 0
	flush := func() error {
		if batch.Size() == 0 {
			return nil
		}
		if err := l.index.Batch(batch); err != nil {
			return fmt.Errorf("error indexing batch: %w", err)
		}
		total += batch.Size()
		batch.Reset()
		return nil
	}

	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && skipDir(p, d.Name(), indexAbs) {
				return filepath.SkipDir
			}
			return nil
		}

		doc, err := ReadDocument(p)
		if err != nil {
			l.log.Debug("skipping file", slog.String("path", p), log.Error(err))
			return nil
		}
		if rel, err := filepath.Rel(dir, p); err == nil {
			doc.ID = filepath.ToSlash(rel)
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			l.log.Warn("error adding document to batch",
				slog.String("path", p), log.Error(err),
			)
			return nil
		}
		if batch.Size() >= maxBatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return total, fmt.Errorf("error walking %s: %w", dir, err)
	}
	if err := flush(); err != nil {
		return total, err
	}
	l.log.Info("indexing complete",
		slog.String("dir", dir), slog.Int("documents", total),
	)
	return total, nil
}

func skipDir(p, name, indexAbs string) bool {
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".bleve") {
		return true
	}
	if indexAbs == "" {
		return false
	}
	abs, err := filepath.Abs(p)
	return err == nil && abs == indexAbs
}

// Search returns up to limit documents matching query, best first
func (l *Library) Search(q string, limit int) ([]Hit, error) {
	if strings.TrimSpace(q) == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(q), limit, 0, false)
	req.Fields = []string{"title"}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("content")

	res, err := l.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("error performing search: %w", err)
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		hit.Title, _ = h.Fields["title"].(string)
		if frags := h.Fragments["content"]; len(frags) > 0 {
			hit.Snippet = frags[0]
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Get returns the stored document with the given ID
func (l *Library) Get(id string) (*Document, error) {
	req := bleve.NewSearchRequest(query.NewDocIDQuery([]string{id}))
	req.Fields = []string{"title", "type", "content"}
	res, err := l.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", id, err)
	}
	if len(res.Hits) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	f := res.Hits[0].Fields
	doc := &Document{ID: id}
	doc.Title, _ = f["title"].(string)
	doc.Type, _ = f["type"].(string)
	doc.Content, _ = f["content"].(string)
	return doc, nil
}

func titleFromID(id string) string {
	base := filepath.Base(filepath.FromSlash(id))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
