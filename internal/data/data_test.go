package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"forecast-backtest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate(500, 7)
	require.NoError(t, err)
	b, err := Generate(500, 7)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Generate(500, 8)
	require.NoError(t, err)
	assert.NotEqual(t, a.Observations[0].Price, c.Observations[0].Price)
}

func TestGenerateShape(t *testing.T) {
	s, err := Generate(72, 1)
	require.NoError(t, err)
	require.Equal(t, 72, s.Len())
	require.NoError(t, s.Validate())

	assert.Equal(t, time.Hour, s.Frequency)
	assert.Equal(t, SeriesStart, s.Observations[0].Timestamp)
	assert.Equal(t, SeriesStart.Add(71*time.Hour), s.Observations[71].Timestamp)

	for _, o := range s.Observations {
		// Loose sanity bands around the deterministic components.
		assert.InDelta(t, 10, o.Temp, 20)
		assert.InDelta(t, 100, o.Load, 60)
		assert.InDelta(t, 110, o.Price, 90)
	}
}

func TestGenerateRejectsNonPositive(t *testing.T) {
	_, err := Generate(0, 1)
	assert.ErrorIs(t, err, model.ErrConfig)
	_, err = Generate(-3, 1)
	assert.ErrorIs(t, err, model.ErrConfig)
	_, err = GenerateDays(0, 1)
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestSeriesCSVRoundTrip(t *testing.T) {
	s, err := Generate(30, 11)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "series.csv")
	require.NoError(t, WriteSeriesCSV(path, s))

	got, err := LoadSeries(path)
	require.NoError(t, err)
	assert.Equal(t, s.Frequency, got.Frequency)
	require.Equal(t, s.Len(), got.Len())
	for i := range s.Observations {
		assert.True(t, s.Observations[i].Timestamp.Equal(got.Observations[i].Timestamp))
		assert.Equal(t, s.Observations[i].Price, got.Observations[i].Price)
		assert.Equal(t, s.Observations[i].Load, got.Observations[i].Load)
		assert.Equal(t, s.Observations[i].Temp, got.Observations[i].Temp)
	}
}

func TestReadSeriesCSVRejectsNaN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gappy.csv")
	body := "timestamp,price,load,temp\n" +
		"2020-01-01T00:00:00Z,40,100,10\n" +
		"2020-01-01T01:00:00Z,NaN,101,10\n" +
		"2020-01-01T02:00:00Z,42,102,11\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := LoadSeries(path)
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestSeriesJSONRoundTrip(t *testing.T) {
	s, err := Generate(10, 2)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "series.json")
	require.NoError(t, SaveSeriesJSON(path, s))

	got, err := LoadSeries(path)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, got.Frequency)
	assert.Equal(t, s.Len(), got.Len())
}

func TestLoadSeriesUnsupportedExtension(t *testing.T) {
	_, err := LoadSeries("series.xlsx")
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestSeriesCache(t *testing.T) {
	c := NewSeriesCache(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	a, err := c.Generate(48, 5)
	require.NoError(t, err)
	b, err := c.Generate(48, 5)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, c.Len())

	now = now.Add(2 * time.Minute)
	_, ok := c.Get(GenerateCacheKey(48, 5))
	assert.False(t, ok)

	c.evictExpired()
	assert.Equal(t, 0, c.Len())

	var nilCache *SeriesCache
	s, err := nilCache.Generate(24, 1)
	require.NoError(t, err)
	assert.Equal(t, 24, s.Len())
}

func TestParquetRoundTrip(t *testing.T) {
	s, err := Generate(48, 9)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "nested", "series.parquet")
	require.NoError(t, SaveSeries(path, s))

	got, err := LoadSeries(path)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, got.Frequency)
	require.Equal(t, s.Len(), got.Len())
	for i := range s.Observations {
		assert.True(t, s.Observations[i].Timestamp.Equal(got.Observations[i].Timestamp))
		assert.Equal(t, s.Observations[i].Price, got.Observations[i].Price)
		assert.Equal(t, s.Observations[i].Load, got.Observations[i].Load)
		assert.Equal(t, s.Observations[i].Temp, got.Observations[i].Temp)
	}
}

func TestSaveSeriesUnsupportedExtension(t *testing.T) {
	s, err := Generate(2, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, SaveSeries(filepath.Join(t.TempDir(), "s.txt"), s), model.ErrConfig)
}
