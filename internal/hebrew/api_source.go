package hebrew

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultAPIBaseURL  = "https://www.hebcal.com"
	defaultHTTPTimeout = 10 * time.Second
	defaultCacheTTL    = 24 * time.Hour
)

// APISource implements Source using the hebcal.com REST API
type APISource struct {
	baseURL    string
	israel     bool
	httpClient *http.Client
	logger     *zap.Logger
	cache      map[string]*cachedRange
	cacheMu    sync.RWMutex
	cacheTTL   time.Duration
}

type cachedRange struct {
	data      []apiItem
	fetchedAt time.Time
}

// apiResponse represents the hebcal.com JSON structure
type apiResponse struct {
	Title string    `json:"title"`
	Items []apiItem `json:"items"`
}

type apiItem struct {
	Title    string `json:"title"`
	Date     string `json:"date"`  // "2024-10-12" or RFC3339 for timed items
	HDate    string `json:"hdate"` // "10 Tishrei 5785"
	Category string `json:"category"`
	Subcat   string `json:"subcat,omitempty"`
	Yomtov   bool   `json:"yomtov,omitempty"`
	Memo     string `json:"memo,omitempty"`
}

// NewAPISource creates a new APISource instance
func NewAPISource(baseURL string, israel bool, cacheTTL time.Duration, logger *zap.Logger) *APISource {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if cacheTTL == 0 {
		cacheTTL = defaultCacheTTL
	}

	return &APISource{
		baseURL: strings.TrimRight(baseURL, "/"),
		israel:  israel,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		logger:   logger,
		cache:    make(map[string]*cachedRange),
		cacheTTL: cacheTTL,
	}
}

// Observances returns observances between start and end inclusive
func (s *APISource) Observances(ctx context.Context, start, end time.Time) ([]Observance, error) {
	// Check cache
	cacheKey := start.Format("2006-01-02") + ".." + end.Format("2006-01-02")

	s.cacheMu.RLock()
	if cached, ok := s.cache[cacheKey]; ok {
		if time.Since(cached.fetchedAt) < s.cacheTTL {
			s.cacheMu.RUnlock()
			s.logger.Debug("Using cached observances",
				zap.String("range", cacheKey))
			return s.toObservances(cached.data, start.Location()), nil
		}
	}
	s.cacheMu.RUnlock()

	items, err := s.fetchRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	// Update cache
	s.cacheMu.Lock()
	s.cache[cacheKey] = &cachedRange{
		data:      items,
		fetchedAt: time.Now(),
	}
	s.cacheMu.Unlock()

	return s.toObservances(items, start.Location()), nil
}

// fetchRange fetches the date range from the hebcal.com JSON API
func (s *APISource) fetchRange(ctx context.Context, start, end time.Time) ([]apiItem, error) {
	// Build URL: https://www.hebcal.com/hebcal?v=1&cfg=json&maj=on&min=on&nx=on&mf=on&start=...&end=...
	q := url.Values{}
	q.Set("v", "1")
	q.Set("cfg", "json")
	q.Set("maj", "on")
	q.Set("min", "on")
	q.Set("nx", "on")
	q.Set("mf", "on")
	q.Set("mod", "off")
	q.Set("ss", "off")
	q.Set("c", "off")
	q.Set("start", start.Format("2006-01-02"))
	q.Set("end", end.Format("2006-01-02"))
	if s.israel {
		q.Set("i", "on")
	}
	reqURL := s.baseURL + "/hebcal?" + q.Encode()

	s.logger.Debug("Fetching observances from hebcal.com",
		zap.String("url", reqURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch observances: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse API response: %w", err)
	}

	s.logger.Info("Observances fetched from API",
		zap.String("start", start.Format("2006-01-02")),
		zap.String("end", end.Format("2006-01-02")),
		zap.Int("items", len(apiResp.Items)))

	return apiResp.Items, nil
}

// toObservances converts API items, skipping the ones with unparseable dates
func (s *APISource) toObservances(items []apiItem, loc *time.Location) []Observance {
	obs := make([]Observance, 0, len(items))
	for _, item := range items {
		// Timed items carry a full timestamp, the day is always the first 10 chars
		dateStr := item.Date
		if len(dateStr) > 10 {
			dateStr = dateStr[:10]
		}

		date, err := time.ParseInLocation("2006-01-02", dateStr, loc)
		if err != nil {
			s.logger.Warn("Failed to parse observance date",
				zap.String("date", item.Date),
				zap.String("title", item.Title),
				zap.Error(err))
			continue
		}

		obs = append(obs, Observance{
			Date:        date,
			HebrewDate:  item.HDate,
			Description: item.Title,
			Categories:  categoriesFromItem(item),
		})
	}
	return obs
}

// categoriesFromItem maps hebcal.com category/subcat fields to flags.
// Yom Kippur and Tish'a B'Av are the two major fasts; other fasts are minor.
func categoriesFromItem(item apiItem) Category {
	var c Category
	title := normalizeTitle(item.Title)

	switch item.Category {
	case "roshchodesh":
		c |= CategoryRoshChodesh
	case "holiday":
		if item.Yomtov {
			c |= CategoryFestival
		}
		isMajorFast := strings.Contains(title, "yom kippur") || strings.Contains(title, "tisha bav")
		if isMajorFast && !strings.HasPrefix(title, "erev") {
			c |= CategoryMajorFast
		} else if item.Subcat == "fast" {
			c |= CategoryMinorFast
		}
	}
	return c
}

// ClearCache clears the cache
func (s *APISource) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.cache = make(map[string]*cachedRange)
	s.logger.Info("Observance cache cleared")
}
