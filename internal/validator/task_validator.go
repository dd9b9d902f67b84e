package validator

import (
	"context"
	"fmt"
	"strings"

	"taskapi/internal/domain/model"
	"taskapi/internal/usecase"
)

const (
	titleMaxLen       = 200
	descriptionMaxLen = 1000
	tagsMax           = 10
	bulkIDsMax        = 100
)

type taskValidator struct{}

func NewTaskValidator() usecase.TaskValidator {
	return &taskValidator{}
}

func (v *taskValidator) ValidateCreate(ctx context.Context, req usecase.TaskCreateRequest) error {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", usecase.ErrValidation)
	}
	if len(title) > titleMaxLen {
		return fmt.Errorf("%w: title cannot exceed %d characters", usecase.ErrValidation, titleMaxLen)
	}

	if len(req.Description) > descriptionMaxLen {
		return fmt.Errorf("%w: description cannot exceed %d characters", usecase.ErrValidation, descriptionMaxLen)
	}

	if req.Priority != nil && !model.Priority(*req.Priority).Valid() {
		return fmt.Errorf("%w: priority must be one of: low, medium, high", usecase.ErrValidation)
	}

	if err := validateTags(req.Tags); err != nil {
		return err
	}

	return nil
}

func (v *taskValidator) ValidateUpdate(ctx context.Context, req usecase.TaskUpdateRequest) error {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return fmt.Errorf("%w: title cannot be empty", usecase.ErrValidation)
		}
		if len(title) > titleMaxLen {
			return fmt.Errorf("%w: title cannot exceed %d characters", usecase.ErrValidation, titleMaxLen)
		}
	}

	if req.Description != nil && len(*req.Description) > descriptionMaxLen {
		return fmt.Errorf("%w: description cannot exceed %d characters", usecase.ErrValidation, descriptionMaxLen)
	}

	if req.Priority != nil && !model.Priority(*req.Priority).Valid() {
		return fmt.Errorf("%w: priority must be one of: low, medium, high", usecase.ErrValidation)
	}

	if err := validateTags(req.Tags); err != nil {
		return err
	}

	return nil
}

func (v *taskValidator) ValidateBulkUpdate(ctx context.Context, req usecase.TaskBulkUpdateRequest) error {
	if err := validateBulkIDs(req.IDs); err != nil {
		return err
	}

	if req.IsCompleted == nil && req.Priority == nil {
		return fmt.Errorf("%w: nothing to update", usecase.ErrValidation)
	}

	if req.Priority != nil && !model.Priority(*req.Priority).Valid() {
		return fmt.Errorf("%w: priority must be one of: low, medium, high", usecase.ErrValidation)
	}

	return nil
}

func (v *taskValidator) ValidateBulkDelete(ctx context.Context, req usecase.TaskBulkDeleteRequest) error {
	return validateBulkIDs(req.IDs)
}

func validateTags(tags []string) error {
	if len(tags) > tagsMax {
		return fmt.Errorf("%w: cannot have more than %d tags", usecase.ErrValidation, tagsMax)
	}
	//カンマ区切りで保存するのでタグ自体にカンマは許さない
	for _, tag := range tags {
		if strings.Contains(tag, ",") {
			return fmt.Errorf("%w: tags cannot contain commas", usecase.ErrValidation)
		}
	}
	return nil
}

func validateBulkIDs(ids []int64) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: ids are required", usecase.ErrValidation)
	}
	if len(ids) > bulkIDsMax {
		return fmt.Errorf("%w: cannot target more than %d tasks", usecase.ErrValidation, bulkIDsMax)
	}
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: invalid task id", usecase.ErrValidation)
		}
	}
	return nil
}
