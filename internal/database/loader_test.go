package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nepsedata/nepse-data-service/internal/transform"
)

func priceRecord(securityID float64, symbol, date string, closePrice float64) map[string]any {
	return map[string]any{
		"id":                    float64(1000 + securityID),
		"securityId":            securityID,
		"symbol":                symbol,
		"securityName":          symbol + " Ltd.",
		"businessDate":          date,
		"openPrice":             closePrice - 5,
		"highPrice":             closePrice + 5,
		"lowPrice":              closePrice - 10,
		"closePrice":            closePrice,
		"previousDayClosePrice": closePrice - 2,
		"fiftyTwoWeekHigh":      closePrice + 100,
		"fiftyTwoWeekLow":       closePrice - 100,
		"totalTradedQuantity":   float64(5000),
		"totalTradedValue":      closePrice * 5000,
		"lastUpdatedTime":       date + "T15:00:00.000000",
		"lastUpdatedPrice":      closePrice,
		"totalTrades":           float64(120),
		"averageTradedPrice":    closePrice,
		"marketCapitalization":  closePrice * 1e6,
	}
}

func mustTransform(t *testing.T, ds *transform.Dataset, recs []map[string]any) *transform.Batch {
	t.Helper()
	batch, err := transform.Transform(ds, recs, time.Now())
	require.NoError(t, err)
	require.NotNil(t, batch)
	return batch
}

func TestLoader(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("append inserts price rows", func(t *testing.T) {
		testDB.TruncateAll(t)

		batch := mustTransform(t, transform.PriceVolume, []map[string]any{
			priceRecord(131, "NABIL", "2025-05-19", 505.5),
			priceRecord(132, "NTC", "2025-05-19", 910),
		})

		require.NoError(t, testDB.Load(batch))

		count, err := testDB.CountRows("stock_prices")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("re-ingesting a date is idempotent", func(t *testing.T) {
		testDB.TruncateAll(t)

		batch := mustTransform(t, transform.PriceVolume, []map[string]any{
			priceRecord(131, "NABIL", "2025-05-19", 505.5),
		})
		require.NoError(t, testDB.Load(batch))

		// Same security and date, updated close price.
		updated := mustTransform(t, transform.PriceVolume, []map[string]any{
			priceRecord(131, "NABIL", "2025-05-19", 510),
		})
		require.NoError(t, testDB.Load(updated))

		count, err := testDB.CountRows("stock_prices")
		require.NoError(t, err)
		assert.Equal(t, 1, count, "upsert must not duplicate the (security, date) row")

		var closePrice string
		err = testDB.GetRawConn().QueryRow(
			`SELECT close_price FROM stock_prices WHERE security_id = 131 AND business_date = '2025-05-19'`,
		).Scan(&closePrice)
		require.NoError(t, err)
		assert.Equal(t, "510.00", closePrice)
	})

	t.Run("null trade counts are stored as NULL", func(t *testing.T) {
		testDB.TruncateAll(t)

		rec := priceRecord(131, "NABIL", "2025-05-19", 505.5)
		rec["totalTrades"] = "N/A"

		require.NoError(t, testDB.Load(mustTransform(t, transform.PriceVolume, []map[string]any{rec})))

		var totalTrades *int64
		err := testDB.GetRawConn().QueryRow(
			`SELECT total_trades FROM stock_prices WHERE security_id = 131`,
		).Scan(&totalTrades)
		require.NoError(t, err)
		assert.Nil(t, totalTrades)
	})

	t.Run("replace leaves exactly the new batch", func(t *testing.T) {
		testDB.TruncateAll(t)

		first := mustTransform(t, transform.SymbolSectors, []map[string]any{
			{"id": float64(1), "symbol": "NABIL", "securityName": "Nabil Bank", "sectorName": "Commercial Banks"},
			{"id": float64(2), "symbol": "NTC", "securityName": "Nepal Telecom", "sectorName": "Others"},
			{"id": float64(3), "symbol": "NRIC", "securityName": "Nepal Reinsurance", "sectorName": "Non Life Insurance"},
		})
		require.NoError(t, testDB.Load(first))

		second := mustTransform(t, transform.SymbolSectors, []map[string]any{
			{"id": float64(1), "symbol": "NABIL", "securityName": "Nabil Bank", "sectorName": "Commercial Banks"},
		})
		require.NoError(t, testDB.Load(second))

		count, err := testDB.CountRows("stock_symbol_sectors")
		require.NoError(t, err)
		assert.Equal(t, 1, count, "replace must leave exactly the new batch's rows")
	})

	t.Run("sector summary appends across runs", func(t *testing.T) {
		testDB.TruncateAll(t)

		sectorRec := func(date string) map[string]any {
			return map[string]any{
				"id":               float64(1),
				"businessDate":     date,
				"sectorName":       "Commercial Banks",
				"totalTransaction": float64(5200),
				"turnOverValues":   float64(1.2e9),
				"turnOverVolume":   float64(2e6),
			}
		}

		require.NoError(t, testDB.Load(mustTransform(t, transform.SectorSummary, []map[string]any{sectorRec("2025-05-19")})))
		require.NoError(t, testDB.Load(mustTransform(t, transform.SectorSummary, []map[string]any{sectorRec("2025-05-20")})))

		count, err := testDB.CountRows("stock_sector_wise_summary")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestKnownSecurities(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	testDB.TruncateAll(t)

	batch := mustTransform(t, transform.PriceVolume, []map[string]any{
		priceRecord(131, "NABIL", "2025-05-19", 505.5),
		priceRecord(131, "NABIL", "2025-05-20", 507),
		priceRecord(132, "NTC", "2025-05-19", 910),
	})
	require.NoError(t, testDB.Load(batch))

	t.Run("returns distinct pairs", func(t *testing.T) {
		securities, err := testDB.KnownSecurities(nil)
		require.NoError(t, err)
		require.Len(t, securities, 2)
		assert.Equal(t, int64(131), securities[0].ID)
		assert.Equal(t, "NABIL", securities[0].Symbol)
		assert.Equal(t, int64(132), securities[1].ID)
	})

	t.Run("filters to one identifier", func(t *testing.T) {
		id := int64(132)
		securities, err := testDB.KnownSecurities(&id)
		require.NoError(t, err)
		require.Len(t, securities, 1)
		assert.Equal(t, "NTC", securities[0].Symbol)
	})

	t.Run("unknown identifier yields empty result, not error", func(t *testing.T) {
		id := int64(999)
		securities, err := testDB.KnownSecurities(&id)
		require.NoError(t, err)
		assert.Empty(t, securities)
	})

	t.Run("SecurityExists", func(t *testing.T) {
		exists, err := testDB.SecurityExists(131)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = testDB.SecurityExists(999)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
