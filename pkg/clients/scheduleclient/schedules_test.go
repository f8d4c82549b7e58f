package scheduleclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwells-dev/careplanner/pkg/core/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), server.URL, "test-token", 5*time.Second)
	require.NoError(t, err)
	return client
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient(context.Background(), "not a url", "token", time.Second)
	assert.Error(t, err)

	_, err = NewClient(context.Background(), "", "token", time.Second)
	assert.Error(t, err)
}

func TestListWindow(t *testing.T) {
	var gotPath, gotAuth string
	var gotQuery map[string][]string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"result": [
				{
					"id": "sched-1",
					"date": "2026-03-02",
					"startTime": "09:00",
					"endTime": "10:00",
					"employee": {"id": "emp-1", "firstName": "Priya", "lastName": "Nair"},
					"serviceUser": {"id": "su-1", "firstName": "Edith", "lastName": "Marsh"},
					"serviceType": "Personal care",
					"branch": "Barking",
					"area": "Redbridge",
					"status": "confirmed"
				},
				{
					"id": "sched-2",
					"date": "2026-03-03",
					"startTime": "11:00",
					"endTime": "12:30",
					"serviceUser": "su-2",
					"status": "cancelled"
				}
			],
			"page": 1,
			"limit": 100,
			"total": 2
		}`)
	})

	start := time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	schedules, err := client.ListWindow(context.Background(), start, end, "su-1", 1, 100)
	require.NoError(t, err)

	assert.Equal(t, "/v1/schedules", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, []string{"1"}, gotQuery["page"])
	assert.Equal(t, []string{"100"}, gotQuery["limit"])
	assert.Equal(t, []string{"2026-02-27"}, gotQuery["startDate"])
	assert.Equal(t, []string{"2026-03-05"}, gotQuery["endDate"])
	assert.Equal(t, []string{"su-1"}, gotQuery["serviceUserId"])

	require.Len(t, schedules, 2)

	first := schedules[0]
	assert.Equal(t, "sched-1", first.ID)
	require.NotNil(t, first.Employee)
	assert.Equal(t, "Priya Nair", first.Employee.FullName())
	assert.False(t, first.Cancelled)

	// Bare-id reference decodes to a stub with just the id
	second := schedules[1]
	assert.Nil(t, second.Employee)
	require.NotNil(t, second.ServiceUser)
	assert.Equal(t, "su-2", second.ServiceUser.ID)
	assert.True(t, second.Cancelled)
}

func TestListWindow_OmitsEmptyServiceUser(t *testing.T) {
	var gotQuery map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		io.WriteString(w, `{"result": []}`)
	})

	schedules, err := client.ListWindow(context.Background(), time.Now(), time.Now(), "", 1, 50)
	require.NoError(t, err)
	assert.Empty(t, schedules)
	assert.NotContains(t, gotQuery, "serviceUserId")
}

func TestPatchTimes(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.PatchTimes(context.Background(), "sched-1", "11:00", "12:00")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/v1/schedules/sched-1", gotPath)
	assert.Equal(t, map[string]string{"startTime": "11:00", "endTime": "12:00"}, gotBody)
}

func TestPatchTimes_BackendError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"message": "schedule already completed"}`)
	})

	err := client.PatchTimes(context.Background(), "sched-1", "11:00", "12:00")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "schedule already completed", apiErr.Message)
}

func TestPatchTimes_ErrorWithoutBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.PatchTimes(context.Background(), "sched-1", "11:00", "12:00")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), apiErr.Message)
}

func TestCreate(t *testing.T) {
	var gotRecord scheduleRecord

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/schedules", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRecord))

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id": "assigned-by-backend"}`)
	})

	id, err := client.Create(context.Background(), model.Schedule{
		ID:          "client-id",
		Date:        "2026-03-02",
		StartTime:   "14:00",
		EndTime:     "15:00",
		ServiceUser: &model.ServiceUser{ID: "su-1"},
		ServiceType: "Extra call",
	})
	require.NoError(t, err)

	assert.Equal(t, "assigned-by-backend", id)
	assert.Equal(t, "client-id", gotRecord.ID)
	assert.Equal(t, "14:00", gotRecord.StartTime)
	require.NotNil(t, gotRecord.ServiceUser)
	assert.Equal(t, "su-1", gotRecord.ServiceUser.ID)
}

func TestCreate_EmptyResponseBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	id, err := client.Create(context.Background(), model.Schedule{
		ID: "client-id", Date: "2026-03-02", StartTime: "14:00", EndTime: "15:00",
	})
	require.NoError(t, err)
	assert.Empty(t, id, "caller falls back to the client-supplied id")
}

func TestPersonRef_UnmarshalForms(t *testing.T) {
	var ref personRef
	require.NoError(t, json.Unmarshal([]byte(`"emp-9"`), &ref))
	assert.Equal(t, personRef{ID: "emp-9"}, ref)

	require.NoError(t, json.Unmarshal([]byte(`{"id": "emp-1", "firstName": "Priya", "lastName": "Nair"}`), &ref))
	assert.Equal(t, personRef{ID: "emp-1", FirstName: "Priya", LastName: "Nair"}, ref)

	assert.Error(t, json.Unmarshal([]byte(`42`), &ref))
}
