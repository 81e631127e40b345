package currency

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chargeback/internal/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memoryCache) SetWithTTL(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string][]byte)
	}
	c.data[key] = b
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	b, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

// provider serves fixed rates; historical dates missing from rates return 404.
func provider(t *testing.T, hits *int32, rates map[string]float64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "USD", r.URL.Query().Get("to"))

		path := r.URL.Path[1:]
		rate, ok := rates[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"not found"}`))
			return
		}
		date := path
		if path == "latest" {
			date = "2024-05-01"
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"amount": 1.0,
			"base":   r.URL.Query().Get("from"),
			"date":   date,
			"rates":  map[string]float64{"USD": rate},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newConverter(baseURL string, c Cache) Converter {
	return NewConverter(Options{
		BaseURL:       baseURL,
		RatePerSecond: 1000,
		Clock:         clock.NewFakeClock(time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)),
	}, c, zap.NewNop())
}

func TestConvert_Historical(t *testing.T) {
	var hits int32
	srv := provider(t, &hits, map[string]float64{"2024-01-15": 1.0945})

	res, err := newConverter(srv.URL, nil).Convert(context.Background(), Request{Currency: "eur", Amount: 100, Date: "2024-01-15"})
	require.NoError(t, err)
	assert.Equal(t, &Result{USDAmount: 109.45, Rate: 1.0945, Currency: "EUR", Date: "2024-01-15"}, res)
}

func TestConvert_FallsBackToLatest(t *testing.T) {
	var hits int32
	srv := provider(t, &hits, map[string]float64{"latest": 1.1})

	res, err := newConverter(srv.URL, nil).Convert(context.Background(), Request{Currency: "EUR", Amount: 10.005, Date: "2030-01-01"})
	require.NoError(t, err)
	assert.Equal(t, 1.1, res.Rate)
	assert.Equal(t, "2024-05-01", res.Date)
	assert.Equal(t, 11.01, res.USDAmount)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestConvert_NoRate(t *testing.T) {
	var hits int32
	srv := provider(t, &hits, map[string]float64{})

	_, err := newConverter(srv.URL, nil).Convert(context.Background(), Request{Currency: "XXX", Amount: 10})
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestConvert_USD(t *testing.T) {
	var hits int32
	srv := provider(t, &hits, map[string]float64{})

	res, err := newConverter(srv.URL, nil).Convert(context.Background(), Request{Currency: "USD", Amount: 42.424})
	require.NoError(t, err)
	assert.Equal(t, &Result{USDAmount: 42.42, Rate: 1, Currency: "USD", Date: "2024-06-02"}, res)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestConvert_InvalidInput(t *testing.T) {
	c := newConverter("http://127.0.0.1:0", nil)

	_, err := c.Convert(context.Background(), Request{Currency: "EURO", Amount: 1})
	assert.ErrorIs(t, err, ErrInvalidCurrency)
	_, err = c.Convert(context.Background(), Request{Currency: "", Amount: 1})
	assert.ErrorIs(t, err, ErrInvalidCurrency)
	_, err = c.Convert(context.Background(), Request{Currency: "EUR", Amount: 1, Date: "15/01/2024"})
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestConvert_UsesCache(t *testing.T) {
	var hits int32
	srv := provider(t, &hits, map[string]float64{"2024-01-15": 0.5})
	c := newConverter(srv.URL, &memoryCache{})

	for i := 0; i < 3; i++ {
		res, err := c.Convert(context.Background(), Request{Currency: "GBP", Amount: 4, Date: "2024-01-15"})
		require.NoError(t, err)
		assert.Equal(t, 2.0, res.USDAmount)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
