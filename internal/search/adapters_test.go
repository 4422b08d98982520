// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/discovery-engine/internal/httputil"
	"github.com/pdiddy/discovery-engine/internal/logging"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

func testClient(name string) *httputil.Client {
	return httputil.NewClient(name, httputil.Options{Retry: types.RetryConfig{MaxAttempts: 1}})
}

// --- E-utilities (GEO, PubMed) ---

const sampleGEOSummary = `{
  "result": {
    "uids": ["200012345", "200067890"],
    "200012345": {
      "uid": "200012345",
      "accession": "GSE12345",
      "title": "RNA-seq of breast tumours",
      "summary": "Expression <i>profiling</i> of 40 tumours.",
      "taxon": "Homo sapiens",
      "n_samples": 40,
      "gpl": "16791;11154",
      "pdat": "2023/03/15",
      "pubmedids": [31415926]
    },
    "200067890": {
      "uid": "200067890",
      "accession": "gse67890",
      "title": "Mouse liver atlas",
      "taxon": "Mus musculus",
      "n_samples": 12,
      "gpl": "",
      "pdat": "2019/11/02",
      "pubmedids": []
    }
  }
}`

const samplePubMedSummary = `{
  "result": {
    "uids": ["35000001"],
    "35000001": {
      "uid": "35000001",
      "pubdate": "2022 Mar 4",
      "sortpubdate": "2022/03/04 00:00",
      "title": "Single-cell atlas of breast cancer.",
      "fulljournalname": "Nature",
      "authors": [{"name": "Smith J"}, {"name": "Lee K"}],
      "articleids": [
        {"idtype": "pubmed", "value": "35000001"},
        {"idtype": "doi", "value": "10.1038/s41586-022-0001"},
        {"idtype": "pmc", "value": "PMC9000001"}
      ]
    }
  }
}`

func eutilsTestServer(t *testing.T, ids []string, summary string, seen *[]string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen = append(*seen, r.URL.RawQuery)
		}
		assert.Equal(t, "json", r.URL.Query().Get("retmode"))
		assert.Equal(t, "discovery-engine", r.URL.Query().Get("tool"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/esearch.fcgi"):
			fmt.Fprintf(w, `{"esearchresult":{"count":"%d","idlist":["%s"]}}`, len(ids), strings.Join(ids, `","`))
		case strings.HasSuffix(r.URL.Path, "/esummary.fcgi"):
			fmt.Fprint(w, summary)
		default:
			http.NotFound(w, r)
		}
	}))
	old := eutilsBase
	eutilsBase = ts.URL
	t.Cleanup(func() {
		eutilsBase = old
		ts.Close()
	})
	return ts
}

func TestGEOAdapterSearch(t *testing.T) {
	var seen []string
	eutilsTestServer(t, []string{"200012345", "200067890"}, sampleGEOSummary, &seen)

	a := &GEOAdapter{Client: testClient("geo"), APIKey: "k1"}
	recs, err := a.Search(context.Background(), Query{
		Text:    "breast cancer",
		Filters: types.Filters{Organism: "Homo sapiens", DateFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	d := recs[0].Dataset
	require.NotNil(t, d)
	assert.Equal(t, "GSE12345", d.Accession)
	assert.Equal(t, "Expression profiling of 40 tumours.", d.Summary)
	assert.Equal(t, "Homo sapiens", d.Organism)
	assert.Equal(t, 40, d.SampleCount)
	assert.Equal(t, []string{"GPL16791", "GPL11154"}, d.PlatformIDs)
	assert.Equal(t, []string{"31415926"}, d.LinkedPublicationIDs)
	assert.Equal(t, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), d.SubmissionDate)
	assert.Equal(t, "geo", d.SourceName)
	assert.Equal(t, "GSE67890", recs[1].Dataset.Accession)

	require.NotEmpty(t, seen)
	assert.Contains(t, seen[0], "db=gds")
	assert.Contains(t, seen[0], "api_key=k1")
}

func TestGEOTerm(t *testing.T) {
	q := Query{
		Text: "breast cancer",
		Filters: types.Filters{
			Organism: "Homo sapiens",
			DateFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	assert.Equal(t, `breast cancer AND gse[ETYP] AND "Homo sapiens"[Organism] AND 2020/01/01:3000/12/31[PDAT]`, geoTerm(q))
	assert.Equal(t, "liver AND gse[ETYP]", geoTerm(Query{Text: " liver "}))
}

func TestGEOAdapterNoHits(t *testing.T) {
	eutilsTestServer(t, nil, `{"result":{}}`, nil)
	a := &GEOAdapter{Client: testClient("geo")}
	recs, err := a.Search(context.Background(), Query{Text: "zzz"})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestPubMedAdapterSearch(t *testing.T) {
	var seen []string
	eutilsTestServer(t, []string{"35000001"}, samplePubMedSummary, &seen)

	a := &PubMedAdapter{Client: testClient("pubmed"), Email: "ops@example.org"}
	recs, err := a.Search(context.Background(), Query{
		Text:    "breast cancer",
		Filters: types.Filters{DateFrom: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	p := recs[0].Publication
	require.NotNil(t, p)
	assert.Equal(t, "35000001", p.PMID)
	assert.Equal(t, "10.1038/s41586-022-0001", p.DOI)
	assert.Equal(t, "PMC9000001", p.PMCID)
	assert.Equal(t, "Single-cell atlas of breast cancer", p.Title)
	assert.Equal(t, []string{"Smith J", "Lee K"}, p.Authors)
	assert.Equal(t, "Nature", p.Journal)
	assert.Equal(t, 2022, p.Year)
	assert.Equal(t, time.Date(2022, 3, 4, 0, 0, 0, 0, time.UTC), p.PublishedAt)
	assert.Equal(t, "pubmed", p.SourceName)

	require.NotEmpty(t, seen)
	assert.Contains(t, seen[0], "datetype=pdat")
	assert.Contains(t, seen[0], "mindate=2021%2F01%2F01")
	assert.Contains(t, seen[0], "email=ops%40example.org")
}

func TestPubMedYearOnlyDate(t *testing.T) {
	s := pubmedSummary{UID: "1", PubDate: "2019", Title: "x"}
	p := s.toPublication()
	assert.Equal(t, 2019, p.Year)
	assert.True(t, p.PublishedAt.IsZero())
}

func TestPubMedServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()
	old := eutilsBase
	eutilsBase = ts.URL
	defer func() { eutilsBase = old }()

	a := &PubMedAdapter{Client: testClient("pubmed")}
	_, err := a.Search(context.Background(), Query{Text: "x"})
	assert.Error(t, err)
}

// --- ArrayExpress ---

func TestArrayExpressAdapterSearch(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
		  "totalHits": 2,
		  "hits": [
		    {"accession": "E-MTAB-1234", "type": "study", "title": "Breast cancer <b>RNA-seq</b>", "release_date": "2021-05-06", "content": "tumour profiling"},
		    {"accession": "", "title": "no accession"}
		  ]
		}`)
	}))
	defer ts.Close()
	old := arrayExpressBase
	arrayExpressBase = ts.URL
	defer func() { arrayExpressBase = old }()

	a := &ArrayExpressAdapter{Client: testClient("arrayexpress"), Limit: 5}
	recs, err := a.Search(context.Background(), Query{Text: "breast cancer", Filters: types.Filters{Organism: "Homo sapiens"}})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	d := recs[0].Dataset
	assert.Equal(t, "E-MTAB-1234", d.Accession)
	assert.Equal(t, "Breast cancer RNA-seq", d.Title)
	assert.Equal(t, "Homo sapiens", d.Organism)
	assert.Zero(t, d.SampleCount)
	assert.Equal(t, time.Date(2021, 5, 6, 0, 0, 0, 0, time.UTC), d.SubmissionDate)
	assert.Contains(t, gotQuery, "facet.organism=homo+sapiens")
	assert.Contains(t, gotQuery, "pageSize=5")
}

// --- Europe PMC ---

func TestEuropePMCAdapterSearch(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		assert.Equal(t, "core", r.URL.Query().Get("resultType"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
		  "hitCount": 1,
		  "resultList": {"result": [{
		    "id": "35000001", "source": "MED", "pmid": "35000001", "pmcid": "PMC9000001",
		    "doi": "10.1038/s41586-022-0001",
		    "title": "Single-cell atlas of breast cancer.",
		    "authorString": "Smith J, Lee K.",
		    "pubYear": "2022",
		    "firstPublicationDate": "2022-03-04",
		    "abstractText": "<h4>Background</h4> We profiled tumours.",
		    "citedByCount": 450,
		    "journalInfo": {"journal": {"title": "Nature"}},
		    "keywordList": {"keyword": ["scRNA-seq", "breast cancer"]}
		  }]}
		}`)
	}))
	defer ts.Close()
	old := europePMCSearchBase
	europePMCSearchBase = ts.URL
	defer func() { europePMCSearchBase = old }()

	a := &EuropePMCAdapter{Client: testClient("europepmc")}
	recs, err := a.Search(context.Background(), Query{
		Text:    "breast cancer",
		Filters: types.Filters{DateFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	p := recs[0].Publication
	assert.Equal(t, "35000001", p.PMID)
	assert.Equal(t, "PMC9000001", p.PMCID)
	assert.Equal(t, "Single-cell atlas of breast cancer", p.Title)
	assert.Equal(t, []string{"Smith J", "Lee K"}, p.Authors)
	assert.Equal(t, "Background We profiled tumours.", p.Abstract)
	assert.Equal(t, 450, p.CitationCount)
	assert.Equal(t, 2022, p.Year)
	assert.Equal(t, []string{"scRNA-seq", "breast cancer"}, p.Keywords)
	assert.Equal(t, "https://europepmc.org/article/MED/35000001", p.URL)
	assert.Equal(t, "(breast cancer) AND FIRST_PDATE:[2020-01-01 TO 3000-12-31]", gotQuery)
}

// --- OpenAlex ---

const sampleOpenAlexJSON = `{
  "meta": {"count": 1, "per_page": 10, "page": 1},
  "results": [{
    "id": "https://openalex.org/W123",
    "title": "Breast cancer transcriptomes",
    "doi": "https://doi.org/10.1234/bc.2023",
    "publication_date": "2023-02-01",
    "publication_year": 2023,
    "cited_by_count": 42,
    "ids": {"pmid": "https://pubmed.ncbi.nlm.nih.gov/36000001", "pmcid": "https://www.ncbi.nlm.nih.gov/pmc/articles/9876543"},
    "authorships": [{"author": {"display_name": "Ana Gomez"}}, {"author": {"display_name": "Wei Chen"}}],
    "abstract_inverted_index": {"We": [0], "sequenced": [1], "tumours": [2]},
    "primary_location": {"source": {"display_name": "Cell"}},
    "keywords": [{"display_name": "Transcriptomics"}]
  }, {"id": "https://openalex.org/W0", "title": ""}]
}`

func TestOpenAlexAdapterSearch(t *testing.T) {
	var gotFilter, gotMailto string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("filter")
		gotMailto = r.URL.Query().Get("mailto")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sampleOpenAlexJSON)
	}))
	defer ts.Close()
	old := openAlexSearchBase
	openAlexSearchBase = ts.URL
	defer func() { openAlexSearchBase = old }()

	a := &OpenAlexAdapter{Client: testClient("openalex"), Email: "ops@example.org"}
	recs, err := a.Search(context.Background(), Query{
		Text: "breast cancer",
		Filters: types.Filters{
			DateFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			DateTo:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	p := recs[0].Publication
	assert.Equal(t, "10.1234/bc.2023", p.DOI)
	assert.Equal(t, "36000001", p.PMID)
	assert.Equal(t, "PMC9876543", p.PMCID)
	assert.Equal(t, "We sequenced tumours", p.Abstract)
	assert.Equal(t, []string{"Ana Gomez", "Wei Chen"}, p.Authors)
	assert.Equal(t, "Cell", p.Journal)
	assert.Equal(t, 42, p.CitationCount)
	assert.Equal(t, []string{"Transcriptomics"}, p.Keywords)
	assert.Equal(t, "from_publication_date:2020-01-01,to_publication_date:2024-12-31", gotFilter)
	assert.Equal(t, "ops@example.org", gotMailto)
}

func TestReconstructAbstract(t *testing.T) {
	idx := map[string][]int{"the": {0, 3}, "cat": {1}, "saw": {2}, "dog": {4}}
	assert.Equal(t, "the cat saw the dog", reconstructAbstract(idx))
	assert.Empty(t, reconstructAbstract(nil))
}

// --- Semantic Scholar ---

func TestSemanticScholarAdapterSearch(t *testing.T) {
	var gotKey, gotYear string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		gotYear = r.URL.Query().Get("year")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
		  "total": 1, "offset": 0,
		  "data": [{
		    "paperId": "abc123",
		    "title": "Breast cancer single-cell maps",
		    "abstract": "Maps of tumours.",
		    "venue": "Science",
		    "year": 2021,
		    "publicationDate": "2021-07-09",
		    "citationCount": 88,
		    "authors": [{"authorId": "1", "name": "Ana Gomez"}],
		    "externalIds": {"DOI": "10.1126/sci.1", "PubMed": "34000001", "PubMedCentral": "8000001", "CorpusId": 99}
		  }]
		}`)
	}))
	defer ts.Close()
	old := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = old }()

	cfg := types.DefaultConfig()
	cfg.Retry = types.RetryConfig{MaxAttempts: 1}
	sc := cfg.Search.Adapters["semantic_scholar"]
	sc.APIKey = "s2-key"
	sc.RatePerSecond = 0
	cfg.Search.Adapters["semantic_scholar"] = sc

	adapters := FilterAdapters(NewAdapters(cfg, logging.Discard()), []string{"semantic_scholar"})
	require.Len(t, adapters, 1)
	defer adapters[0].Close()

	recs, err := adapters[0].Search(context.Background(), Query{
		Text:    "breast cancer",
		Filters: types.Filters{DateFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	p := recs[0].Publication
	assert.Equal(t, "34000001", p.PMID)
	assert.Equal(t, "PMC8000001", p.PMCID)
	assert.Equal(t, "10.1126/sci.1", p.DOI)
	assert.Equal(t, 88, p.CitationCount)
	assert.Equal(t, "https://www.semanticscholar.org/paper/abc123", p.URL)
	assert.Equal(t, "s2-key", gotKey)
	assert.Equal(t, "2020-", gotYear)
}

// --- arXiv ---

const sampleArxivFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <title>ArXiv Query</title>
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <published>2023-01-17T18:00:00Z</published>
    <title>Deep learning for
      breast cancer histology</title>
    <summary>  We train a model on slides.  </summary>
    <author><name>Ana Gomez</name></author>
    <author><name>Wei Chen</name></author>
    <arxiv:doi>10.48550/arXiv.2301.07041</arxiv:doi>
    <arxiv:journal_ref>Med Image Anal 2023</arxiv:journal_ref>
    <link href="http://arxiv.org/abs/2301.07041v2" rel="alternate" type="text/html"/>
  </entry>
</feed>`

func TestArxivAdapterSearch(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, sampleArxivFeed)
	}))
	defer ts.Close()
	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	a := &ArxivAdapter{Client: testClient("arxiv")}
	recs, err := a.Search(context.Background(), Query{Text: "breast cancer"})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	p := recs[0].Publication
	assert.Equal(t, "2301.07041", p.ArxivID)
	assert.Equal(t, "Deep learning for breast cancer histology", p.Title)
	assert.Equal(t, "We train a model on slides.", p.Abstract)
	assert.Equal(t, []string{"Ana Gomez", "Wei Chen"}, p.Authors)
	assert.Equal(t, "10.48550/arXiv.2301.07041", p.DOI)
	assert.Equal(t, "Med Image Anal 2023", p.Journal)
	assert.Equal(t, 2023, p.Year)
	assert.Equal(t, "all:breast AND all:cancer", gotQuery)
}

func TestExtractArxivID(t *testing.T) {
	tests := map[string]string{
		"http://arxiv.org/abs/2301.07041v1":    "2301.07041",
		"http://arxiv.org/abs/2301.07041":      "2301.07041",
		"http://arxiv.org/abs/hep-th/9901001v3": "hep-th/9901001",
		"http://example.org/other":             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, extractArxivID(in), in)
	}
}

// --- Adapter registry ---

func TestNewAdaptersHonoursEnabled(t *testing.T) {
	cfg := types.DefaultConfig()
	geo := cfg.Search.Adapters["geo"]
	geo.Enabled = false
	cfg.Search.Adapters["geo"] = geo

	adapters := NewAdapters(cfg, logging.Discard())
	names := make([]string, len(adapters))
	for i, a := range adapters {
		names[i] = a.Name()
	}
	assert.Equal(t, []string{"arrayexpress", "pubmed", "europepmc", "openalex", "semantic_scholar", "arxiv"}, names)

	kept := FilterAdapters(adapters, []string{"pubmed", "arxiv"})
	assert.Len(t, kept, 2)
	assert.Equal(t, []string{"bogus", "nope"}, UnknownAdapters([]string{"pubmed", "nope", "bogus"}))
}
