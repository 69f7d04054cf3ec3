package service

import (
	"context"
	"fmt"

	"github.com/aiimpactmedia/casting/internal/model"
)

// AdminService backs the submission review screen
type AdminService struct {
	store ReviewStore
}

func NewAdminService(store ReviewStore) *AdminService {
	return &AdminService{store: store}
}

// List returns every record with per-platform totals
func (s *AdminService) List(ctx context.Context) (*model.SubmissionListResponse, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	byPlatform := make(map[model.Platform]int, len(model.ValidPlatforms))
	for _, p := range model.ValidPlatforms {
		byPlatform[p] = 0
	}
	for _, r := range records {
		byPlatform[r.Platform]++
	}

	if records == nil {
		records = []model.SubmissionRecord{}
	}
	return &model.SubmissionListResponse{
		Total:      len(records),
		ByPlatform: byPlatform,
		Items:      records,
	}, nil
}

// UpdateStatus sets a record's review status
func (s *AdminService) UpdateStatus(ctx context.Context, id string, status model.SubmissionStatus) (*model.SubmissionRecord, error) {
	valid := false
	for _, v := range model.ValidSubmissionStatuses {
		if status == v {
			valid = true
			break
		}
	}
	if !valid {
		return nil, model.ErrInvalidStatus
	}

	rec, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
