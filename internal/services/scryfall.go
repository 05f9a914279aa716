package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/mbrettin/cardbase/internal/metrics"
)

const (
	scryfallBaseURL       = "https://api.scryfall.com"
	scryfallUserAgent     = "cardbase/1.0"
	scryfallTimeout       = 30 * time.Second
	scryfallMaxRetries    = 4
	scryfallInitialDelay  = 1 * time.Second
	scryfallMaxDelay      = 30 * time.Second
	scryfallMinReqSpacing = 100 * time.Millisecond
)

// RateLimitError means the upstream kept answering 429 until the retry budget
// ran out.
type RateLimitError struct {
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("scryfall rate limit exceeded after %d attempts", e.Attempts)
}

// UpstreamUnavailableError means the upstream kept answering 5xx until the
// retry budget ran out.
type UpstreamUnavailableError struct {
	Status   int
	Attempts int
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("scryfall unavailable (status %d) after %d attempts", e.Status, e.Attempts)
}

// UpstreamError is any other non-2xx answer. Not retried.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("scryfall API returned status %d: %s", e.Status, e.Body)
}

// ScryfallClient fetches pages from the Scryfall catalog API with respectful
// pacing: a minimum spacing between requests regardless of outcome, plus a
// bounded retry loop with exponential backoff for 429/5xx.
type ScryfallClient struct {
	client     *http.Client
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int

	// sleep is swapped for a recorder in tests so the backoff curve is
	// observable without real delays.
	sleep func(time.Duration)
}

// NewScryfallClient creates a client against baseURL, or the real API when
// baseURL is empty.
func NewScryfallClient(baseURL string) *ScryfallClient {
	if baseURL == "" {
		baseURL = scryfallBaseURL
	}
	return &ScryfallClient{
		client:     &http.Client{Timeout: scryfallTimeout},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Every(scryfallMinReqSpacing), 1),
		maxRetries: scryfallMaxRetries,
		sleep:      time.Sleep,
	}
}

// ScryfallSet is a raw set record from the catalog.
type ScryfallSet struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	PrintedName string `json:"printed_name"`
	SetType     string `json:"set_type"`
	ReleasedAt  string `json:"released_at"`
	CardCount   int    `json:"card_count"`
	IconSVGURI  string `json:"icon_svg_uri"`
	Digital     bool   `json:"digital"`
}

// ScryfallCard is a raw card record from the catalog.
type ScryfallCard struct {
	ID              string   `json:"id"`
	OracleID        string   `json:"oracle_id"`
	Name            string   `json:"name"`
	PrintedName     string   `json:"printed_name"`
	Lang            string   `json:"lang"`
	ManaCost        string   `json:"mana_cost"`
	CMC             float64  `json:"cmc"`
	TypeLine        string   `json:"type_line"`
	PrintedTypeLine string   `json:"printed_type_line"`
	OracleText      string   `json:"oracle_text"`
	PrintedText     string   `json:"printed_text"`
	Power           string   `json:"power"`
	Toughness       string   `json:"toughness"`
	Loyalty         string   `json:"loyalty"`
	Colors          []string `json:"colors"`
	ColorIdentity   []string `json:"color_identity"`
	Rarity          string   `json:"rarity"`
	CollectorNumber string   `json:"collector_number"`
	ReleasedAt      string   `json:"released_at"`
	SetID           string   `json:"set_id"`
	Set             string   `json:"set"`

	ImageURIs  *scryfallImageURIs `json:"image_uris"`
	Prices     scryfallPrices     `json:"prices"`
	Legalities map[string]string  `json:"legalities"`

	Booster      bool     `json:"booster"`
	Promo        bool     `json:"promo"`
	Variation    bool     `json:"variation"`
	FullArt      bool     `json:"full_art"`
	BorderColor  string   `json:"border_color"`
	FrameEffects []string `json:"frame_effects"`
	PromoTypes   []string `json:"promo_types"`
}

type scryfallImageURIs struct {
	Small   string `json:"small"`
	Normal  string `json:"normal"`
	Large   string `json:"large"`
	PNG     string `json:"png"`
	ArtCrop string `json:"art_crop"`
}

type scryfallPrices struct {
	EUR     string `json:"eur"`
	EURFoil string `json:"eur_foil"`
	USD     string `json:"usd"`
	USDFoil string `json:"usd_foil"`
	Tix     string `json:"tix"`
}

// scryfallList is the paginated response envelope. The sets listing uses the
// same shape with has_more absent.
type scryfallList struct {
	Object   string          `json:"object"`
	Data     json.RawMessage `json:"data"`
	HasMore  bool            `json:"has_more"`
	NextPage string          `json:"next_page"`
}

// fetchPage issues one GET with the retry loop. A 404 is the upstream's "no
// results" answer and yields a nil page, not an error.
func (c *ScryfallClient) fetchPage(ctx context.Context, reqURL string) (*scryfallList, error) {
	attempt := 0
	delay := scryfallInitialDelay

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", scryfallUserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to reach scryfall: %w", err)
		}
		metrics.ScryfallRequestsTotal.Inc()

		switch {
		case resp.StatusCode == http.StatusOK:
			var page scryfallList
			err := json.NewDecoder(resp.Body).Decode(&page)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to decode scryfall response: %w", err)
			}
			return &page, nil

		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return nil, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			metrics.ScryfallRateLimitHits.Inc()
			if attempt >= c.maxRetries {
				return nil, &RateLimitError{Attempts: attempt + 1}
			}
			wait := delay
			if ra := retryAfterSeconds(resp); ra > 0 {
				wait = ra
			}
			c.sleep(wait)

		case resp.StatusCode >= 500:
			status := resp.StatusCode
			resp.Body.Close()
			metrics.ScryfallRetriesTotal.Inc()
			if attempt >= c.maxRetries {
				return nil, &UpstreamUnavailableError{Status: status, Attempts: attempt + 1}
			}
			c.sleep(delay)

		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			status := resp.StatusCode
			resp.Body.Close()
			return nil, &UpstreamError{Status: status, Body: string(body)}
		}

		attempt++
		delay *= 2
		if delay > scryfallMaxDelay {
			delay = scryfallMaxDelay
		}
	}
}

func retryAfterSeconds(resp *http.Response) time.Duration {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	secs, err := strconv.Atoi(ra)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// ListSets fetches the flat sets listing.
func (c *ScryfallClient) ListSets(ctx context.Context) ([]ScryfallSet, error) {
	page, err := c.fetchPage(ctx, c.baseURL+"/sets")
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, nil
	}
	var sets []ScryfallSet
	if err := json.Unmarshal(page.Data, &sets); err != nil {
		return nil, fmt.Errorf("failed to decode sets: %w", err)
	}
	return sets, nil
}

// EachSearchCard runs a catalog search and streams every card of every page to
// fn. The sequence is forward-only: a failure mid-pagination aborts the whole
// fetch and callers retry from the first page.
func (c *ScryfallClient) EachSearchCard(ctx context.Context, query string, fn func(ScryfallCard) error) error {
	params := url.Values{}
	params.Set("q", query)
	params.Set("unique", "prints")
	params.Set("include_extras", "true")
	params.Set("include_variations", "true")

	next := fmt.Sprintf("%s/cards/search?%s", c.baseURL, params.Encode())
	for next != "" {
		page, err := c.fetchPage(ctx, next)
		if err != nil {
			return err
		}
		if page == nil {
			return nil
		}

		var cards []ScryfallCard
		if err := json.Unmarshal(page.Data, &cards); err != nil {
			return fmt.Errorf("failed to decode cards: %w", err)
		}
		for _, card := range cards {
			if err := fn(card); err != nil {
				return err
			}
		}

		if !page.HasMore {
			return nil
		}
		next = page.NextPage
	}
	return nil
}
