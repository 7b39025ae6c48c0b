package handler

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hospital-jobs/internal/delivery/http/middleware"
	"hospital-jobs/internal/domain"
	"hospital-jobs/internal/pipeline"
	"hospital-jobs/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipelineUC struct {
	gotBatchSize *int
	calls        int
	err          error
}

func (f *fakePipelineUC) RunDiscovery(ctx context.Context, batchSize *int) (pipeline.DiscoverySummary, error) {
	f.calls++
	f.gotBatchSize = batchSize
	if f.err != nil {
		return pipeline.DiscoverySummary{}, f.err
	}
	return pipeline.DiscoverySummary{
		Processed:  2,
		Found:      1,
		NotFound:   1,
		ByPlatform: map[domain.Platform]int{domain.PlatformSoftgarden: 1},
	}, nil
}

func (f *fakePipelineUC) RunScrape(ctx context.Context, batchSize *int) (pipeline.ScrapeSummary, error) {
	f.calls++
	f.gotBatchSize = batchSize
	if f.err != nil {
		return pipeline.ScrapeSummary{}, f.err
	}
	return pipeline.ScrapeSummary{
		Processed:      3,
		TotalJobsFound: 12,
		TotalJobsAdded: 4,
		Errors:         1,
		Results:        []pipeline.ScrapeItem{{Hospital: "Klinikum Nord", JobsFound: 12, JobsAdded: 4}},
	}, nil
}

func newTestApp(uc usecase.PipelineUsecase) *fiber.App {
	logger := log.New(io.Discard, "", 0)
	app := fiber.New()
	app.Use(middleware.NewErrorMiddleware(logger).Middleware())
	pass := func(c fiber.Ctx) error { return c.Next() }
	NewPipelineHandler(uc, logger).RegisterRoutes(app.Group("/functions/v1"), pass)
	return app
}

func doJSON(t *testing.T, app *fiber.App, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestScrapeHospitalJobs_EmptyBodyUsesDefault(t *testing.T) {
	uc := &fakePipelineUC{}
	status, body := doJSON(t, newTestApp(uc), "/functions/v1/scrape-hospital-jobs", "")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 3, body["processed"])
	assert.EqualValues(t, 4, body["totalJobsAdded"])
	assert.Nil(t, uc.gotBatchSize)

	results, ok := body["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, "Klinikum Nord", results[0].(map[string]any)["hospital"])
}

func TestDiscoverCareerPages_BatchSizeAndUnknownFields(t *testing.T) {
	uc := &fakePipelineUC{}
	status, body := doJSON(t, newTestApp(uc), "/functions/v1/discover-career-pages", `{"batchSize":5,"dryRun":true}`)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 1, body["found"])
	require.NotNil(t, uc.gotBatchSize)
	assert.Equal(t, 5, *uc.gotBatchSize)
}

func TestTrigger_BadRequests(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"batchSize":`},
		{"zero batch", `{"batchSize":0}`},
		{"negative batch", `{"batchSize":-3}`},
		{"string batch", `{"batchSize":"ten"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := &fakePipelineUC{}
			status, body := doJSON(t, newTestApp(uc), "/functions/v1/scrape-hospital-jobs", tc.body)

			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["error"])
			assert.Zero(t, uc.calls)
		})
	}
}

func TestTrigger_BatchRunningIsConflict(t *testing.T) {
	uc := &fakePipelineUC{err: usecase.ErrBatchRunning}
	status, body := doJSON(t, newTestApp(uc), "/functions/v1/discover-career-pages", "{}")

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "batch already running", body["error"])
}

func TestTrigger_SystemicFailureIs500(t *testing.T) {
	uc := &fakePipelineUC{err: io.ErrUnexpectedEOF}
	status, body := doJSON(t, newTestApp(uc), "/functions/v1/scrape-hospital-jobs", "{}")

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "internal server error", body["error"])
}
