// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: ncbi-api-key, ncbi-email, semantic-scholar-api-key, core-api-key,
// unpaywall-email, openalex-email, institutional-token.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/discovery-engine/pkg/types"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// binding routes one secret to an adapter credential field.
type binding struct {
	secret  string
	stage   string // "search" or "fulltext"
	adapter string
	email   bool
}

var bindings = []binding{
	{secret: "ncbi-api-key", stage: "search", adapter: "geo"},
	{secret: "ncbi-api-key", stage: "search", adapter: "pubmed"},
	{secret: "ncbi-email", stage: "search", adapter: "geo", email: true},
	{secret: "ncbi-email", stage: "search", adapter: "pubmed", email: true},
	{secret: "semantic-scholar-api-key", stage: "search", adapter: "semantic_scholar"},
	{secret: "semantic-scholar-api-key", stage: "fulltext", adapter: "semantic_scholar"},
	{secret: "openalex-email", stage: "search", adapter: "openalex", email: true},
	{secret: "openalex-email", stage: "fulltext", adapter: "openalex", email: true},
	{secret: "unpaywall-email", stage: "fulltext", adapter: "unpaywall", email: true},
	{secret: "core-api-key", stage: "fulltext", adapter: "core"},
	{secret: "institutional-token", stage: "fulltext", adapter: "institutional"},
}

// Apply copies loaded secrets into the adapter credentials of cfg. Values
// already set in the configuration win. A secret only fills an adapter that
// is present in the configuration; it never enables one.
func Apply(cfg *types.Config, secrets map[string]string) {
	for _, b := range bindings {
		value, ok := secrets[b.secret]
		if !ok {
			continue
		}
		adapters := cfg.Search.Adapters
		if b.stage == "fulltext" {
			adapters = cfg.FullText.Adapters
		}
		ac, ok := adapters[b.adapter]
		if !ok {
			continue
		}
		if b.email {
			if ac.Email == "" {
				ac.Email = value
			}
		} else if ac.APIKey == "" {
			ac.APIKey = value
		}
		adapters[b.adapter] = ac
	}
}
