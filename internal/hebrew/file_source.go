package hebrew

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FileSource implements Source using a local YAML observance list
//
// Format:
//
//	observances:
//	  - date: 2024-10-12
//	    hebrew_date: 10 Tishrei 5785
//	    description: Yom Kippur
//	    categories: [festival, major_fast]
type FileSource struct {
	filePath string
	logger   *zap.Logger

	mu     sync.RWMutex
	loaded bool
	data   []fileEntry // sorted by date
}

type fileEntry struct {
	year       int
	month      time.Month
	day        int
	hebrewDate string
	title      string
	categories Category
}

type observanceFile struct {
	Observances []fileObservance `yaml:"observances"`
}

type fileObservance struct {
	Date        string   `yaml:"date"`
	HebrewDate  string   `yaml:"hebrew_date"`
	Description string   `yaml:"description"`
	Categories  []string `yaml:"categories"`
}

// NewFileSource creates a new FileSource instance
func NewFileSource(filePath string, logger *zap.Logger) *FileSource {
	return &FileSource{
		filePath: filePath,
		logger:   logger,
	}
}

// Load loads observance data from file
func (fs *FileSource) Load() error {
	raw, err := os.ReadFile(fs.filePath)
	if err != nil {
		return fmt.Errorf("failed to read observance file: %w", err)
	}

	var file observanceFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("failed to parse observance file: %w", err)
	}

	entries := make([]fileEntry, 0, len(file.Observances))
	for _, o := range file.Observances {
		date, err := time.Parse("2006-01-02", o.Date)
		if err != nil {
			fs.logger.Warn("Failed to parse date", zap.String("date", o.Date), zap.Error(err))
			continue
		}
		if o.Description == "" {
			fs.logger.Warn("Observance without description", zap.String("date", o.Date))
			continue
		}

		var categories Category
		for _, name := range o.Categories {
			c, err := ParseCategory(name)
			if err != nil {
				fs.logger.Warn("Unknown category", zap.String("category", name), zap.String("date", o.Date))
				continue
			}
			categories |= c
		}

		entries = append(entries, fileEntry{
			year:       date.Year(),
			month:      date.Month(),
			day:        date.Day(),
			hebrewDate: o.HebrewDate,
			title:      o.Description,
			categories: categories,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].key() < entries[j].key()
	})

	fs.mu.Lock()
	fs.data = entries
	fs.loaded = true
	fs.mu.Unlock()

	fs.logger.Info("Observance file loaded",
		zap.String("file", fs.filePath),
		zap.Int("observances", len(entries)))

	return nil
}

// Observances returns the loaded observances between start and end inclusive
func (fs *FileSource) Observances(ctx context.Context, start, end time.Time) ([]Observance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if !fs.loaded {
		return nil, fmt.Errorf("observance file not loaded: %s", fs.filePath)
	}

	from := start.Format("2006-01-02")
	to := end.Format("2006-01-02")
	loc := start.Location()

	var obs []Observance
	for _, e := range fs.data {
		key := e.key()
		if key < from || key > to {
			continue
		}
		obs = append(obs, Observance{
			Date:        time.Date(e.year, e.month, e.day, 0, 0, 0, 0, loc),
			HebrewDate:  e.hebrewDate,
			Description: e.title,
			Categories:  e.categories,
		})
	}

	return obs, nil
}

func (e fileEntry) key() string {
	return fmt.Sprintf("%04d-%02d-%02d", e.year, e.month, e.day)
}
