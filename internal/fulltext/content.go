// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/discovery-engine/pkg/types"
)

const (
	rawDir      = "raw"
	metadataDir = "metadata"

	contentTypePDF = "application/pdf"
	contentTypeXML = "application/xml"
)

// Content is a full-text document returned by an adapter.
type Content struct {
	Body        []byte
	ContentType string
	// URL is where the document was finally retrieved from.
	URL string
}

// ContentStore persists acquired documents and returns an opaque reference
// to the stored copy.
type ContentStore interface {
	Save(pubID string, pub types.Publication, source string, c *Content) (ref string, err error)
}

// DocumentMeta is the YAML sidecar written next to every stored document.
type DocumentMeta struct {
	PublicationID string    `yaml:"publication_id"`
	Title         string    `yaml:"title,omitempty"`
	PMID          string    `yaml:"pmid,omitempty"`
	PMCID         string    `yaml:"pmcid,omitempty"`
	DOI           string    `yaml:"doi,omitempty"`
	ArxivID       string    `yaml:"arxiv_id,omitempty"`
	Source        string    `yaml:"source"`
	SourceURL     string    `yaml:"source_url,omitempty"`
	ContentType   string    `yaml:"content_type"`
	Path          string    `yaml:"path"`
	Bytes         int       `yaml:"bytes"`
	SHA256        string    `yaml:"sha256"`
	RetrievedAt   time.Time `yaml:"retrieved_at"`
}

// FileStore keeps documents under Dir/raw and their sidecars under
// Dir/metadata, keyed by the slug of the publication id.
type FileStore struct {
	Dir string
	Now func() time.Time
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir, Now: time.Now}
}

// Save writes the document to a temporary file and renames it into place,
// then writes the sidecar. The returned reference is the document path.
func (s *FileStore) Save(pubID string, pub types.Publication, source string, c *Content) (string, error) {
	if c == nil || len(c.Body) == 0 {
		return "", fmt.Errorf("saving %s: empty document", pubID)
	}
	for _, dir := range []string{
		filepath.Join(s.Dir, rawDir),
		filepath.Join(s.Dir, metadataDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	slug := Slug(pubID)
	docPath := filepath.Join(s.Dir, rawDir, slug+extensionFor(c.ContentType))
	if err := writeAtomic(docPath, c.Body); err != nil {
		return "", fmt.Errorf("writing %s: %w", slug, err)
	}

	meta := DocumentMeta{
		PublicationID: pubID,
		Title:         pub.Title,
		PMID:          pub.PMID,
		PMCID:         pub.PMCID,
		DOI:           pub.DOI,
		ArxivID:       pub.ArxivID,
		Source:        source,
		SourceURL:     c.URL,
		ContentType:   c.ContentType,
		Path:          docPath,
		Bytes:         len(c.Body),
		SHA256:        fmt.Sprintf("%x", sha256.Sum256(c.Body)),
		RetrievedAt:   s.now().UTC(),
	}
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return "", fmt.Errorf("marshaling metadata: %w", err)
	}
	if err := writeAtomic(s.metaPath(pubID), data); err != nil {
		return "", fmt.Errorf("writing metadata for %s: %w", slug, err)
	}
	return docPath, nil
}

// ReadMeta loads the sidecar of a stored publication.
func (s *FileStore) ReadMeta(pubID string) (*DocumentMeta, error) {
	data, err := os.ReadFile(s.metaPath(pubID))
	if err != nil {
		return nil, err
	}
	var meta DocumentMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}
	return &meta, nil
}

func (s *FileStore) metaPath(pubID string) string {
	return filepath.Join(s.Dir, metadataDir, Slug(pubID)+".yaml")
}

func (s *FileStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// writeAtomic writes data to a temporary file in the destination directory
// and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".fulltext-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func extensionFor(contentType string) string {
	if contentType == contentTypeXML {
		return ".xml"
	}
	return ".pdf"
}

// sniff identifies a PDF or XML payload from its leading bytes. HTML pages
// are rejected even when served with a PDF content type.
func sniff(body []byte) (string, bool) {
	if bytes.HasPrefix(body, []byte("%PDF-")) {
		return contentTypePDF, true
	}
	head := bytes.TrimPrefix(body[:min(len(body), 512)], []byte("\xef\xbb\xbf"))
	head = bytes.TrimLeft(head, " \t\r\n")
	if bytes.HasPrefix(head, []byte("<?xml")) || bytes.HasPrefix(head, []byte("<article")) {
		if bytes.Contains(bytes.ToLower(head), []byte("<html")) {
			return "", false
		}
		return contentTypeXML, true
	}
	return "", false
}
