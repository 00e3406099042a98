package rates

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"embroidery-pricing/core/types"
	"embroidery-pricing/internal/errors"
)

var shipment = types.Shipment{
	From:   types.Address{Street1: "1 Mill St", City: "Austin", PostalCode: "78701", Country: "US"},
	To:     types.Address{Street1: "9 Elm Rd", City: "Denver", PostalCode: "80202", Country: "US"},
	Parcel: types.Parcel{Length: "10", Width: "8", Height: "4", WeightOz: "16"},
}

func TestLoadStaticAcceptsBothShapes(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "list.json")
	doc := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(list, []byte(`[{"carrier":"UPS","service":"Ground","rate":"5.00"}]`), 0644))
	require.NoError(t, os.WriteFile(doc, []byte(`{"rates":[{"carrier":"USPS","service":"Priority","rate":9.5}]}`), 0644))

	for path, want := range map[string]string{list: "UPS Ground", doc: "USPS Priority"} {
		p, err := LoadStatic(path)
		require.NoError(t, err)
		got, err := p.Quote(context.Background(), shipment)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, want, got[0].MethodName())
	}
}

func TestLoadStaticErrors(t *testing.T) {
	_, err := LoadStatic(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeInvalidConfiguration))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"rates": "nope"}`), 0644))
	_, err = LoadStatic(bad)
	require.Error(t, err)
}

func TestStaticReturnsCopy(t *testing.T) {
	p := NewStatic([]types.RawRate{{Carrier: "UPS", Service: "Ground"}})
	first, err := p.Quote(context.Background(), shipment)
	require.NoError(t, err)
	first[0].Carrier = "changed"

	second, err := p.Quote(context.Background(), shipment)
	require.NoError(t, err)
	assert.Equal(t, "UPS", second[0].Carrier)
}

func TestHTTPQuoteSignsAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.True(t, VerifySignature(body, r.Header.Get(SignatureHeader), "s3cret"))
		assert.Equal(t, "tenant-a", r.Header.Get("X-Account"))

		var got types.Shipment
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "80202", got.To.PostalCode)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rates":[{"id":"r1","carrier":"UPS","service":"Ground","rate":"7.25","delivery_days":3}]}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig(srv.URL)
	cfg.Secret = "s3cret"
	cfg.Headers["X-Account"] = "tenant-a"

	got, err := NewHTTP(cfg, nil).Quote(context.Background(), shipment)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "7.25", got[0].Rate.String())
	require.NotNil(t, got[0].DeliveryDays)
	assert.Equal(t, 3, *got[0].DeliveryDays)
}

func TestHTTPRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"rates":[]}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig(srv.URL)
	cfg.RetryDelay = time.Millisecond

	got, err := NewHTTP(cfg, nil).Quote(context.Background(), shipment)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad address", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	cfg := DefaultConfig(srv.URL)
	cfg.RetryDelay = time.Millisecond

	_, err := NewHTTP(cfg, nil).Quote(context.Background(), shipment)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeProvider))
	assert.Contains(t, err.Error(), "bad address")
	assert.Equal(t, int32(1), calls.Load())
}
