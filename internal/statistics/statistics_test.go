package statistics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lokalfakta/server/config"
	"lokalfakta/server/internal/cache"
	"lokalfakta/server/internal/fetch"
	"lokalfakta/server/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestLookup(url string, c *cache.ExpiringCache) *Lookup {
	logger := quietLogger()
	client := NewPopulationClient(fetch.NewFetcher(nil, logger, 1, 0), url, "test-agent", "2023", time.Second)
	return NewLookup(client, c, logger)
}

func TestReferenceTablesCoverSupportedMunicipalities(t *testing.T) {
	for _, m := range config.SupportedMunicipalities {
		_, ok := MedianIncome(m.Code)
		assert.True(t, ok, "median income missing for %s", m.Name)
		_, ok = WorkingAgePercent(m.Code)
		assert.True(t, ok, "working age share missing for %s", m.Name)
		_, ok = TotalBusinesses(m.Code)
		assert.True(t, ok, "business count missing for %s", m.Name)
	}
}

func TestCrimeRateFor(t *testing.T) {
	stockholm := CrimeRateFor("0180")
	assert.False(t, stockholm.NationalAverage)
	assert.Equal(t, 19400, stockholm.PerHundredThousand)

	gotland := CrimeRateFor("0980")
	assert.True(t, gotland.NationalAverage)
	assert.Equal(t, models.NationalCrimeRate, gotland.PerHundredThousand)

	unknown := CrimeRateFor(config.UnknownMunicipalityCode)
	assert.True(t, unknown.NationalAverage)
}

func TestBuild(t *testing.T) {
	data := Build("0180", "Stockholm", 984748)
	require.NotNil(t, data)
	assert.Equal(t, 984748, data.Population)
	require.NotNil(t, data.MedianIncome)
	require.NotNil(t, data.WorkingAgePercent)
	require.NotNil(t, data.TotalBusinesses)
	require.NotNil(t, data.CrimeRate)
	assert.Equal(t, 19400, *data.CrimeRate)
	assert.False(t, data.SaferThanNationalAverage())

	nacka := Build("0182", "Nacka", 108000)
	assert.True(t, nacka.SaferThanNationalAverage())

	// A code without table entries keeps only population and the fallback rate
	bare := Build("9999", "Nowhere", 10)
	assert.Nil(t, bare.MedianIncome)
	assert.Nil(t, bare.WorkingAgePercent)
	assert.Nil(t, bare.TotalBusinesses)
	require.NotNil(t, bare.CrimeRate)
	assert.Equal(t, models.NationalCrimeRate, *bare.CrimeRate)
	assert.False(t, bare.SaferThanNationalAverage())
}

func TestPopulationQuery(t *testing.T) {
	body, err := PopulationQuery("1280", "2023")
	require.NoError(t, err)

	var decoded scbQuery
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Len(t, decoded.Query, 3)
	assert.Equal(t, "Region", decoded.Query[0].Code)
	assert.Equal(t, []string{"1280"}, decoded.Query[0].Selection.Values)
	assert.Equal(t, []string{"BE0101N1"}, decoded.Query[1].Selection.Values)
	assert.Equal(t, []string{"2023"}, decoded.Query[2].Selection.Values)
	assert.Equal(t, "json", decoded.Response.Format)
}

func TestPopulation_UnknownCodeSkipsNetwork(t *testing.T) {
	client := NewPopulationClient(fetch.NewFetcher(nil, quietLogger(), 1, 0), "http://127.0.0.1:1", "", "2023", time.Second)

	_, err := client.Population(context.Background(), config.UnknownMunicipalityCode)
	assert.True(t, errors.Is(err, ErrUnknownMunicipality))
}

func TestDemographics(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"columns":[],"data":[{"key":["0180","2023"],"values":["984748"]}]}`))
	}))
	defer server.Close()

	l := newTestLookup(server.URL, cache.New(time.Minute, nil))

	data := l.Demographics(context.Background(), "stockholm")
	require.NotNil(t, data)
	assert.Equal(t, 984748, data.Population)
	assert.Equal(t, "Stockholm", data.City)
	assert.NotNil(t, data.MedianIncome)
	assert.NotNil(t, data.CrimeRate)

	again := l.Demographics(context.Background(), "Stockholm Stad")
	require.NotNil(t, again)
	assert.Equal(t, *data, *again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDemographics_AbsentWithoutPopulation(t *testing.T) {
	tests := []struct {
		name   string
		city   string
		status int
		body   string
	}{
		{name: "Unmapped city", city: "Ystad", status: http.StatusOK, body: `{"data":[{"values":["29000"]}]}`},
		{name: "Service error", city: "Malmö", status: http.StatusBadRequest, body: ""},
		{name: "Empty table", city: "Malmö", status: http.StatusOK, body: `{"data":[]}`},
		{name: "Non-numeric value", city: "Malmö", status: http.StatusOK, body: `{"data":[{"values":[".."]}]}`},
		{name: "Zero population", city: "Malmö", status: http.StatusOK, body: `{"data":[{"values":["0"]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			assert.Nil(t, newTestLookup(server.URL, nil).Demographics(context.Background(), tt.city))
		})
	}
}
