package quote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ipo-tracker/internal/errors"
	"ipo-tracker/internal/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := []ClientOption{
		WithBaseURL(srv.URL + "/"),
		WithRateLimit(1000, 10),
		WithRetryDelay(time.Millisecond),
		WithMaxAttempts(3),
	}
	return NewClient(append(base, opts...)...)
}

func TestFetchCurrentPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/scrape/cmp/Acme Ltd", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"company_name": "ACME LIMITED",
			"price":        142.35,
			"success":      true,
			"error":        nil,
		})
	})

	q, err := c.FetchCurrentPrice(context.Background(), "Acme Ltd")

	require.NoError(t, err)
	assert.True(t, q.Success)
	assert.Equal(t, "Acme Ltd", q.CompanyName, "quote keeps the requested name")
	require.NotNil(t, q.Price)
	assert.Equal(t, 142.35, *q.Price)
}

func TestFetchCurrentPrice_ServiceMiss(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"company_name": "Nope",
			"price":        nil,
			"success":      false,
			"error":        `No company found matching "Nope" on screener.in`,
		})
	})

	q, err := c.FetchCurrentPrice(context.Background(), "Nope")

	require.NoError(t, err)
	assert.False(t, q.Success)
	assert.Nil(t, q.Price)
	assert.Contains(t, q.Error, "No company found")
}

func TestFetchCurrentPrice_ZeroPriceIsUnsuccessful(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"company_name":"Acme","price":0,"success":true}`))
	})

	q, err := c.FetchCurrentPrice(context.Background(), "Acme")

	require.NoError(t, err)
	assert.False(t, q.Success)
	assert.Equal(t, "no usable price", q.Error)
}

func TestFetchCurrentPrice_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"company_name":"Acme","price":99.5,"success":true}`))
	})

	q, err := c.FetchCurrentPrice(context.Background(), "Acme")

	require.NoError(t, err)
	assert.Equal(t, 99.5, *q.Price)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchCurrentPrice_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad name", http.StatusUnprocessableEntity)
	})

	q, err := c.FetchCurrentPrice(context.Background(), "Acme")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrQuoteUnavailable)
	assert.False(t, q.Success)
	assert.Contains(t, q.Error, "422")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchCurrentPrice_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	cb := resilience.NewCircuitBreaker("scraper", resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Cooldown:         time.Hour,
	})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithBreaker(cb), WithMaxAttempts(5))

	_, err := c.FetchCurrentPrice(context.Background(), "Acme")
	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, resilience.CircuitOpen, c.Breaker().State())
}

func TestFetchCurrentPrice_EmptyName(t *testing.T) {
	c := NewClient()
	_, err := c.FetchCurrentPrice(context.Background(), "  ")
	assert.ErrorIs(t, err, apperrors.ErrQuoteUnavailable)
}

func TestFetchIpoMetadata(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/scrape/groww", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://groww.in/ipo/acme-ipo", body["url"])

		w.Write([]byte(`{
			"listed_on": "19 Feb 2025",
			"issue_price": "₹674 - ₹708",
			"listing_price": " ₹720 ",
			"issue_size": null,
			"qib_subscription": "120.5x",
			"nii_subscription": null,
			"rii_subscription": "8.1x",
			"total_subscription": "45.2x",
			"success": true,
			"error": null,
			"warning": "Could not scrape: issue size. Please fill in manually."
		}`))
	})

	meta, err := c.FetchIpoMetadata(context.Background(), "https://groww.in/ipo/acme-ipo")

	require.NoError(t, err)
	assert.True(t, meta.Success)
	assert.Equal(t, "19-02-2025", meta.ListedOn)
	assert.Equal(t, "₹674 - ₹708", meta.IssuePrice)
	assert.Equal(t, "₹720", meta.ListingPrice)
	assert.Empty(t, meta.IssueSize)
	assert.Equal(t, "120.5x", meta.Subscription.QIB)
	assert.Empty(t, meta.Subscription.NII)
	assert.Contains(t, meta.Warning, "issue size")
}

func TestFetchIpoMetadata_BadLink(t *testing.T) {
	c := NewClient()
	_, err := c.FetchIpoMetadata(context.Background(), "groww acme")
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
}
