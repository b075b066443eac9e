package knowledge

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/huythanhnguyen/ai-agent/internal/cache"
	"github.com/huythanhnguyen/ai-agent/internal/metrics"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

//go:embed support.yaml
var defaultSupportYAML []byte

type Article struct {
	ID       string   `yaml:"id" json:"id"`
	Title    string   `yaml:"title" json:"title"`
	Keywords []string `yaml:"keywords" json:"-"`
	Content  string   `yaml:"content" json:"content"`
}

type supportFile struct {
	Hotline  string    `yaml:"hotline"`
	Articles []Article `yaml:"articles"`
}

// SupportInfo is what the support answer is grounded on.
type SupportInfo struct {
	Issue    string    `json:"issue"`
	Articles []Article `json:"articles"`
	Hotline  string    `json:"hotline,omitempty"`
}

type SupportBase struct {
	articles []Article
	hotline  string
	store    cache.Store
	ttl      time.Duration
	logger   zerolog.Logger
}

// LoadSupportBase reads the knowledge base from path, or the built-in one
// when path is empty.
func LoadSupportBase(path string, store cache.Store, ttl time.Duration, logger zerolog.Logger) (*SupportBase, error) {
	data := defaultSupportYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read support knowledge base: %w", err)
		}
	}
	return ParseSupportBase(data, store, ttl, logger)
}

func ParseSupportBase(data []byte, store cache.Store, ttl time.Duration, logger zerolog.Logger) (*SupportBase, error) {
	var f supportFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse support knowledge base: %w", err)
	}

	for i := range f.Articles {
		for j, kw := range f.Articles[i].Keywords {
			f.Articles[i].Keywords[j] = strings.ToLower(strings.TrimSpace(kw))
		}
	}

	logger = logger.With().Str("component", "support").Logger()
	logger.Debug().Int("articles", len(f.Articles)).Msg("support knowledge base loaded")

	return &SupportBase{
		articles: f.Articles,
		hotline:  f.Hotline,
		store:    store,
		ttl:      ttl,
		logger:   logger,
	}, nil
}

func (b *SupportBase) Len() int {
	return len(b.articles)
}

// Lookup returns the articles with a keyword occurring in issue, in file
// order. Info is nil when nothing matches.
func (b *SupportBase) Lookup(ctx context.Context, issue string) *SupportInfo {
	normalized := strings.ToLower(strings.TrimSpace(issue))
	if normalized == "" {
		return nil
	}

	sum := sha256.Sum256([]byte(normalized))
	key := "support:" + hex.EncodeToString(sum[:])

	if b.store != nil {
		var cached SupportInfo
		found, err := cache.GetJSON(ctx, b.store, key, &cached)
		switch {
		case err != nil:
			b.logger.Warn().Err(err).Msg("support cache read failed")
			metrics.CacheLookups.WithLabelValues("support", "error").Inc()
		case found:
			metrics.CacheLookups.WithLabelValues("support", "hit").Inc()
			return &cached
		default:
			metrics.CacheLookups.WithLabelValues("support", "miss").Inc()
		}
	}

	var matched []Article
	for _, a := range b.articles {
		for _, kw := range a.Keywords {
			if kw != "" && strings.Contains(normalized, kw) {
				matched = append(matched, a)
				break
			}
		}
	}
	if len(matched) == 0 {
		return nil
	}

	info := &SupportInfo{Issue: issue, Articles: matched, Hotline: b.hotline}
	if b.store != nil {
		if err := cache.SetJSON(ctx, b.store, key, info, b.ttl); err != nil {
			b.logger.Warn().Err(err).Msg("support cache write failed")
		}
	}
	return info
}
