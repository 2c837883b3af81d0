//go:build e2e

package api_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type freeSlot struct {
	SlotID           string `json:"slot_id"`
	StartEpochMillis int64  `json:"start_epoch_millis"`
	EndEpochMillis   int64  `json:"end_epoch_millis"`
}

// uniqueWorkday picks a weekday years ahead so repeated runs against the
// same database don't collide with earlier schedules.
func uniqueWorkday() time.Time {
	day := time.Date(2035, time.January, 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, int(time.Now().UnixNano()/int64(time.Millisecond)%20000))
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

func ddmmyyyy(t time.Time) string {
	return t.Format("02.01.2006")
}

func createTestSchedule(t *testing.T, day time.Time) int {
	t.Helper()
	resp := makeRequest(http.MethodPost, "/schedules", map[string]interface{}{
		"date_mode":        "single",
		"date":             ddmmyyyy(day),
		"doctor_id":        doctorID,
		"start_time":       "09:00",
		"end_time":         "11:00",
		"interval_minutes": 30,
	}, authToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.Message)

	var result struct {
		Created int `json:"created"`
	}
	require.NoError(t, resp.Decode(&result))
	return result.Created
}

func listFree(t *testing.T, day time.Time) []freeSlot {
	t.Helper()
	resp := makeRequest(http.MethodGet, fmt.Sprintf("/schedules/available?doctor_id=%s&date=%s", doctorID, ddmmyyyy(day)), nil, authToken)
	require.True(t, resp.IsSuccess(), resp.Message)

	var slots []freeSlot
	require.NoError(t, resp.Decode(&slots))
	return slots
}

func visitBody(slotID string) map[string]interface{} {
	return map[string]interface{}{
		"slot_id":          slotID,
		"doctor_id":        doctorID,
		"last_name":        "Sidorova",
		"first_name":       "Maria",
		"mobile":           "+79001234567",
		"financing_source": "insurance",
		"comment":          "e2e",
	}
}
