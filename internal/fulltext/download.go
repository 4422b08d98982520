// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/discovery-engine/internal/httputil"
	"github.com/pdiddy/discovery-engine/internal/source"
)

const acceptDocument = "application/pdf, application/xml;q=0.9, */*;q=0.5"

// download fetches rawURL and accepts the body only if it is a PDF or an
// XML document. Missing documents and HTML landing pages are misses.
func download(ctx context.Context, client *httputil.Client, rawURL string) (*Content, error) {
	doc, err := client.Fetch(ctx, rawURL, acceptDocument)
	if err != nil {
		return nil, lookupErr(err)
	}
	ct, ok := sniff(doc.Body)
	if !ok {
		return nil, fmt.Errorf("%s is not a PDF or XML document (%s): %w", doc.URL, doc.ContentType, source.ErrNoFullText)
	}
	return &Content{Body: doc.Body, ContentType: ct, URL: doc.URL}, nil
}

// lookupErr turns "not found" answers into misses and leaves other errors
// for the caller to classify.
func lookupErr(err error) error {
	if httputil.IsNotFound(err) {
		return fmt.Errorf("%v: %w", err, source.ErrNoFullText)
	}
	if errors.Is(err, httputil.ErrBodyTooLarge) {
		return fmt.Errorf("document too large: %w", source.ErrNoFullText)
	}
	return err
}

// noFullText reports that an adapter has nothing to try for a publication.
func noFullText(adapter, why string) error {
	return fmt.Errorf("%s: %s: %w", adapter, why, source.ErrNoFullText)
}
