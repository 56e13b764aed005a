package scraper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"go-research/internal/domain"
)

// DefaultConcurrency and DefaultTimeout are the spec §4.4 defaults.
const (
	DefaultConcurrency = 5
	DefaultTimeout     = 30 * time.Second
)

// Scraper fetches a batch of URLs concurrently, bounded by a semaphore, and
// never fails the batch for a single URL's error: every URL yields exactly
// one domain.ScrapeResult, success or not.
type Scraper struct {
	web         WebFetcher
	convert     Converter
	local       *LocalDecoder
	concurrency int
	timeout     time.Duration
}

// New builds a Scraper. convert may be nil (the LocalDecoder fallback is
// always used in that case). concurrency/timeout <= 0 use the package
// defaults.
func New(web WebFetcher, convert Converter, local *LocalDecoder, concurrency int, timeout time.Duration) *Scraper {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Scraper{web: web, convert: convert, local: local, concurrency: concurrency, timeout: timeout}
}

// ScrapeURLs processes every URL concurrently up to s.concurrency in flight,
// matching how the teacher's DAG orchestrator bounds worker fan-out with a
// buffered-channel semaphore and sync.WaitGroup.
func (s *Scraper) ScrapeURLs(ctx context.Context, urls []string, query string) []domain.ScrapeResult {
	results := make([]domain.ScrapeResult, len(urls))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.scrapeOne(ctx, u)
		}(i, u)
	}
	wg.Wait()
	return results
}

func (s *Scraper) scrapeOne(ctx context.Context, url string) domain.ScrapeResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	typ := DetectType(url)

	var content, title string
	var err error

	switch typ {
	case DocWeb:
		content, title, err = s.web.Fetch(ctx, url)
	default:
		content, title, err = s.fetchDocument(ctx, url, typ)
	}

	if ctx.Err() != nil {
		log.Warn().Str("url", url).Dur("timeout", s.timeout).Msg("scrape_timed_out")
		return domain.ScrapeResult{URL: url, Success: false, Error: "timeout"}
	}
	if err != nil {
		log.Debug().Err(err).Str("url", url).Int("doc_type", int(typ)).Msg("scrape_failed")
		return domain.ScrapeResult{URL: url, Success: false, Error: err.Error()}
	}
	if content == "" {
		return domain.ScrapeResult{URL: url, Success: false, Error: "no content extracted"}
	}

	return domain.ScrapeResult{
		URL:              url,
		Success:          true,
		Title:            title,
		ProcessedContent: content,
	}
}

// fetchDocument tries the external convert endpoint first, then the local
// decoder fallback, per spec §4.4.
func (s *Scraper) fetchDocument(ctx context.Context, url string, typ DocType) (string, string, error) {
	if s.convert != nil {
		if content, title, err := s.convert.Convert(ctx, url); err == nil && content != "" {
			return content, title, nil
		}
	}
	if s.local == nil {
		return "", "", errNoLocalDecoder
	}
	content, err := s.local.Decode(ctx, url, typ)
	return content, "", err
}

var errNoLocalDecoder = &noLocalDecoderError{}

type noLocalDecoderError struct{}

func (*noLocalDecoderError) Error() string { return "no local decoder configured" }

var _ Scrape = (*Scraper)(nil)
