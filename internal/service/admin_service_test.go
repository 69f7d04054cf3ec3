package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiimpactmedia/casting/internal/model"
)

func TestAdminService_List(t *testing.T) {
	store := &fakeStore{records: []model.SubmissionRecord{
		{ID: "1", Platform: model.PlatformInstagram},
		{ID: "2", Platform: model.PlatformTikTok},
		{ID: "3", Platform: model.PlatformInstagram},
	}}
	s := NewAdminService(store)

	resp, err := s.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.ByPlatform[model.PlatformInstagram])
	assert.Equal(t, 1, resp.ByPlatform[model.PlatformTikTok])
	assert.Equal(t, 0, resp.ByPlatform[model.PlatformYouTube])
	assert.Len(t, resp.ByPlatform, 4)
}

func TestAdminService_ListEmpty(t *testing.T) {
	resp, err := NewAdminService(&fakeStore{}).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, resp.Items)
	assert.Equal(t, 0, resp.Total)
}

func TestAdminService_ListError(t *testing.T) {
	_, err := NewAdminService(&fakeStore{err: errors.New("down")}).List(context.Background())
	assert.Error(t, err)
}

func TestAdminService_UpdateStatus(t *testing.T) {
	store := &fakeStore{records: []model.SubmissionRecord{{ID: "1", Status: model.SubmissionStatusPending}}}
	s := NewAdminService(store)

	rec, err := s.UpdateStatus(context.Background(), "1", model.SubmissionStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStatusApproved, rec.Status)

	_, err = s.UpdateStatus(context.Background(), "1", "Maybe")
	assert.ErrorIs(t, err, model.ErrInvalidStatus)

	_, err = s.UpdateStatus(context.Background(), "2", model.SubmissionStatusRejected)
	assert.ErrorIs(t, err, model.ErrRecordNotFound)
}
