package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-meetings-backend/pkg/models"
	"community-meetings-backend/pkg/storage"
)

func TestFormInput(t *testing.T) {
	in, err := formInput(map[string]string{
		"project":            "5",
		"community_type":     "pai",
		"meeting_date":       "2024-06-01",
		"meeting_time":       "10:00",
		"participants_count": " 12 ",
		"unit_id":            "3",
	})
	require.NoError(t, err)
	assert.Equal(t, models.UnitTypePai, in.UnitType)
	assert.Equal(t, 12, in.ParticipantsCount)
	require.NotNil(t, in.UnitID)
	assert.Equal(t, int64(3), *in.UnitID)

	in, err = formInput(map[string]string{"unit_type": "group", "community_type": "pai"})
	require.NoError(t, err)
	assert.Equal(t, models.UnitTypeGroup, in.UnitType)
	assert.Nil(t, in.UnitID)
	assert.Zero(t, in.ParticipantsCount)

	_, err = formInput(map[string]string{"participants_count": "many"})
	assert.True(t, models.IsValidationError(err))

	_, err = formInput(map[string]string{"unit_id": "x"})
	assert.True(t, models.IsValidationError(err))
}

func TestMeetingRequestParticipants(t *testing.T) {
	tests := []struct {
		body string
		want int
		ok   bool
	}{
		{`{"participants_count": 8}`, 8, true},
		{`{"participants_count": "8"}`, 8, true},
		{`{"participants_count": ""}`, 0, true},
		{`{"participants_count": null}`, 0, true},
		{`{}`, 0, true},
		{`{"participants_count": "eight"}`, 0, false},
	}
	for _, tt := range tests {
		var req meetingRequest
		err := json.Unmarshal([]byte(tt.body), &req)
		if !tt.ok {
			assert.Error(t, err, tt.body)
			continue
		}
		require.NoError(t, err, tt.body)
		assert.Equal(t, tt.want, req.input().ParticipantsCount, tt.body)
	}
}

func TestCheckUploadCounts(t *testing.T) {
	assert.NoError(t, checkUploadCounts(map[string]int{storage.FieldImages: storage.MaxImages, storage.FieldFiles: storage.MaxFiles}))
	assert.Error(t, checkUploadCounts(map[string]int{storage.FieldImages: storage.MaxImages + 1}))
	assert.Error(t, checkUploadCounts(map[string]int{storage.FieldFiles: storage.MaxFiles + 1}))
}

func TestMeetingFilterFromQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/meetings?project=2&community_type=region&location=%E4%BC%9A", nil)
	f := meetingFilterFromQuery(r)
	assert.Equal(t, "2", f.Project)
	assert.Equal(t, models.UnitTypeRegion, f.UnitType)
	assert.Equal(t, "会", f.Location)

	r = httptest.NewRequest("GET", "/api/meetings?unit_type=group&community_type=region", nil)
	assert.Equal(t, models.UnitTypeGroup, meetingFilterFromQuery(r).UnitType)
}

func TestStatisticsFilterFromQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/statistics?groupBy=project&start_date=2024-01-01", nil)
	f, err := statisticsFilterFromQuery(r)
	require.NoError(t, err)
	assert.Equal(t, models.GroupByProject, f.GroupBy)
	assert.False(t, f.HasRange())

	r = httptest.NewRequest("GET", "/api/statistics?group_by=by_month", nil)
	_, err = statisticsFilterFromQuery(r)
	assert.True(t, models.IsValidationError(err))
}
