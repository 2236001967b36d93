package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avigne/subtrack/internal/config"
	"github.com/avigne/subtrack/internal/integrations/rates"
)

const dailyRatesXML = `<?xml version="1.0" encoding="UTF-8"?>
<gesmes:Envelope xmlns:gesmes="http://www.gesmes.org/xml/2002-08-01" xmlns="http://www.ecb.int/vocabulary/2002-08-01/eurofxref">
	<Cube>
		<Cube time="2025-06-13">
			<Cube currency="USD" rate="1.0850"/>
			<Cube currency="GBP" rate="0.8420"/>
		</Cube>
	</Cube>
</gesmes:Envelope>`

func testConvertHandler(t *testing.T) *Handler {
	t.Helper()
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dailyRatesXML))
	}))
	t.Cleanup(feed.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	client := rates.NewClient(&config.Config{RatesURL: feed.URL, BaseCurrency: "EUR"}, logger)
	return NewHandler(nil, client)
}

func TestConvertCurrency(t *testing.T) {
	h := testConvertHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/currency/convert?amount=100&from=EUR&to=USD", nil)
	rec := httptest.NewRecorder()
	h.ConvertCurrency(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "108.5", resp["converted"])
	assert.Equal(t, "EUR", resp["from"])
	assert.Equal(t, "USD", resp["to"])
}

func TestConvertCurrencyBadRequests(t *testing.T) {
	h := testConvertHandler(t)

	tests := []struct {
		name  string
		query string
	}{
		{"missing amount", "from=EUR&to=USD"},
		{"bad amount", "amount=abc&from=EUR&to=USD"},
		{"missing from", "amount=10&to=USD"},
		{"missing to", "amount=10&from=EUR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/currency/convert?"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.ConvertCurrency(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSearchSubscriptionsRejectsBadPriceParams(t *testing.T) {
	h := NewHandler(nil, nil)

	for _, query := range []string{"min_price=abc", "max_price=1,50"} {
		req := httptest.NewRequest(http.MethodGet, "/subscriptions/search?"+query, nil)
		rec := httptest.NewRecorder()
		h.SearchSubscriptions(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestConvertCurrencyUnknownCurrency(t *testing.T) {
	h := testConvertHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/currency/convert?amount=10&from=EUR&to=XXX", nil)
	rec := httptest.NewRecorder()
	h.ConvertCurrency(rec, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
