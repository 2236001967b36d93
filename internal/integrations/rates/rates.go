package rates

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/avigne/subtrack/internal/config"
	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// cacheTTL is how long a fetched rate table stays valid. The ECB feed
// only changes once per business day, a short TTL just bounds staleness
// after a restart of the feed.
const cacheTTL = 5 * time.Minute

// Client fetches daily foreign exchange reference rates from the ECB
type Client struct {
	url    string
	base   string
	client *http.Client
	log    *logrus.Logger

	mu        sync.Mutex
	rates     map[string]decimal.Decimal
	fetchedAt time.Time
}

// NewClient initializes a new rates client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url:  cfg.RatesURL,
		base: strings.ToUpper(cfg.BaseCurrency),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// Rates returns the current rate table keyed by currency code, with the
// base currency mapped to 1. Served from cache inside the TTL.
func (c *Client) Rates() (map[string]decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rates != nil && time.Since(c.fetchedAt) < cacheTTL {
		return c.rates, nil
	}

	body, err := c.fetch()
	if err != nil {
		// Serve the stale table rather than failing when the feed is down.
		if c.rates != nil {
			c.log.Warnf("Rate feed unavailable, serving cached table: %v", err)
			return c.rates, nil
		}
		return nil, err
	}

	rates, err := c.parseXMLResponse(body)
	if err != nil {
		return nil, err
	}

	c.rates = rates
	c.fetchedAt = time.Now()
	c.log.Infof("Fetched %d exchange rates", len(rates))
	return rates, nil
}

// Convert converts an amount between two currencies using the daily
// reference rates. Both legs go through the base currency.
func (c *Client) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return amount, nil
	}

	rates, err := c.Rates()
	if err != nil {
		return decimal.Zero, err
	}

	fromRate, ok := rates[from]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown currency: %s", from)
	}
	toRate, ok := rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown currency: %s", to)
	}
	if fromRate.IsZero() {
		return decimal.Zero, fmt.Errorf("rate for %s is zero", from)
	}

	// amount / fromRate brings the value to the base currency, then
	// multiplying by toRate leaves it in the target currency.
	return amount.Div(fromRate).Mul(toRate).Round(2), nil
}

func (c *Client) fetch() ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debugf("Rates XML response: %s", string(body))
	return body, nil
}

// parseXMLResponse extracts the currency/rate pairs from the ECB daily
// reference rate document.
func (c *Client) parseXMLResponse(rawBody []byte) (map[string]decimal.Decimal, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	cubes := doc.FindElements("//Cube[@currency]")
	if len(cubes) == 0 {
		return nil, fmt.Errorf("no rate data found in XML")
	}

	rates := map[string]decimal.Decimal{
		c.base: decimal.NewFromInt(1),
	}
	for _, cube := range cubes {
		currency := cube.SelectAttrValue("currency", "")
		rateText := cube.SelectAttrValue("rate", "")
		if currency == "" || rateText == "" {
			continue
		}
		rate, err := decimal.NewFromString(rateText)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rate for %s: %w", currency, err)
		}
		rates[strings.ToUpper(currency)] = rate
	}
	return rates, nil
}
