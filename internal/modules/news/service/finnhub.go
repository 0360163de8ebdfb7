package service

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"smc_bot/internal/models"
	"smc_bot/pkg/logger"
)

const (
	neutralStrength = 50.0
	biasThreshold   = 20.0
	headlinesKept   = 3
)

type Config struct {
	URL      string
	APIKey   string
	CacheTTL time.Duration
	Timeout  time.Duration
}

type Article struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Datetime int64  `json:"datetime"`
}

func (a Article) text() string {
	return strings.ToLower(a.Headline + " " + a.Summary)
}

type Leg struct {
	Currency string    `json:"currency"`
	Strength float64   `json:"strength"`
	News     []Article `json:"news"`
}

// Report is the fundamental read of one pair.
type Report struct {
	Symbol     string          `json:"symbol"`
	Base       Leg             `json:"base"`
	Quote      Leg             `json:"quote"`
	Bias       models.Bias     `json:"bias"`
	Strength   float64         `json:"strength"`
	Volatility string          `json:"volatility"`
	At         time.Time       `json:"timestamp"`
	NewsBias   models.NewsBias `json:"-"`
}

// Finnhub derives a news bias from Finnhub general market news. The feed is
// fetched at most once per CacheTTL and shared by all pairs.
type Finnhub struct {
	cfg  Config
	http *http.Client
	now  func() time.Time

	mu        sync.Mutex
	articles  []Article
	fetchedAt time.Time
}

func NewFinnhub(cfg Config) *Finnhub {
	if cfg.URL == "" {
		cfg.URL = "https://finnhub.io/api/v1/news"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Finnhub{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		now:  time.Now,
	}
}

// Enabled is false without an API key; Bias then always returns nil.
func (f *Finnhub) Enabled() bool { return f.cfg.APIKey != "" }

// Bias returns nil for unsupported symbols or when the provider is disabled.
func (f *Finnhub) Bias(ctx context.Context, symbol string) (*models.NewsBias, error) {
	r, err := f.Analyze(ctx, symbol)
	if err != nil || r == nil {
		return nil, err
	}
	nb := r.NewsBias
	return &nb, nil
}

func (f *Finnhub) Analyze(ctx context.Context, symbol string) (*Report, error) {
	if !f.Enabled() {
		return nil, nil
	}
	base, quote, ok := Currencies(symbol)
	if !ok {
		return nil, nil
	}
	articles, err := f.general(ctx)
	if err != nil {
		return nil, err
	}

	baseNews := relevant(articles, base)
	quoteNews := relevant(articles, quote)
	r := &Report{
		Symbol: symbol,
		Base:   Leg{Currency: base, Strength: Strength(baseNews), News: head(baseNews)},
		Quote:  Leg{Currency: quote, Strength: Strength(quoteNews), News: head(quoteNews)},
		At:     f.now(),
	}
	r.NewsBias = RelativeBias(r.Base.Strength, r.Quote.Strength)
	r.Bias, r.Strength = r.NewsBias.Bias, r.NewsBias.Strength
	r.Volatility = Volatility(len(baseNews) + len(quoteNews))
	return r, nil
}

func (f *Finnhub) general(ctx context.Context) ([]Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.articles != nil && f.now().Sub(f.fetchedAt) < f.cfg.CacheTTL {
		return f.articles, nil
	}

	q := url.Values{}
	q.Set("category", "general")
	q.Set("token", f.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read news: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch news: status %d", resp.StatusCode)
	}

	var out []Article
	if err := sonic.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode news: %w", err)
	}
	if out == nil {
		out = []Article{}
	}
	logger.Debug("[NEWS] fetched %d articles", len(out))
	f.articles, f.fetchedAt = out, f.now()
	return out, nil
}

func relevant(articles []Article, currency string) []Article {
	terms, ok := searchTerms[currency]
	if !ok {
		terms = []string{strings.ToLower(currency)}
	}
	var out []Article
	for _, a := range articles {
		txt := a.text()
		for _, t := range terms {
			if strings.Contains(txt, t) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

func head(a []Article) []Article {
	if len(a) > headlinesKept {
		a = a[:headlinesKept]
	}
	return a
}

// Strength scores articles 0..100 by the share of positive keyword hits.
// No news, or news without any keyword, is neutral (50).
func Strength(articles []Article) float64 {
	var pos, neg int
	for _, a := range articles {
		txt := a.text()
		for _, w := range positiveWords {
			if strings.Contains(txt, w) {
				pos++
			}
		}
		for _, w := range negativeWords {
			if strings.Contains(txt, w) {
				neg++
			}
		}
	}
	if pos+neg == 0 {
		return neutralStrength
	}
	return float64(pos) / float64(pos+neg) * 100
}

// RelativeBias compares base and quote strength; a gap beyond 20 points is
// directional.
func RelativeBias(base, quote float64) models.NewsBias {
	rel := base - quote
	nb := models.NewsBias{Bias: models.BiasNeutral, Strength: math.Abs(rel)}
	switch {
	case rel > biasThreshold:
		nb.Bias = models.BiasBullish
	case rel < -biasThreshold:
		nb.Bias = models.BiasBearish
	}
	return nb
}

func Volatility(n int) string {
	switch {
	case n > 10:
		return "HIGH"
	case n > 5:
		return "MEDIUM"
	default:
		return "LOW"
	}
}
