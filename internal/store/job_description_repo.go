package store

import (
	"context"
	stderrors "errors"
	"strings"

	"personakit/internal/errors"
	"personakit/internal/types"

	"gorm.io/gorm"
)

// JobDescriptionRepo registers the job postings personas are generated from
type JobDescriptionRepo interface {
	Create(ctx context.Context, jd types.JobDescription) (types.JobDescription, error)
	Get(ctx context.Context, id string) (types.JobDescription, error)
	List(ctx context.Context, roleID string) ([]types.JobDescription, error)
}

type jobDescriptionRepo struct {
	db  *gorm.DB
	log *errors.Logger
}

func NewJobDescriptionRepo(db *gorm.DB, logger *errors.Logger) JobDescriptionRepo {
	return &jobDescriptionRepo{db: db, log: logger}
}

func (jr *jobDescriptionRepo) Create(ctx context.Context, jd types.JobDescription) (types.JobDescription, error) {
	if strings.TrimSpace(jd.RoleID) == "" || strings.TrimSpace(jd.Content) == "" {
		return types.JobDescription{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"job description requires role_id and content", nil)
	}

	rec := JobDescriptionRecord{
		RoleID:   jd.RoleID,
		RoleName: jd.RoleName,
		Title:    jd.Title,
		Content:  jd.Content,
	}
	if err := jr.db.WithContext(ctx).Create(&rec).Error; err != nil {
		jr.log.LogError(err, "Failed to create job description", "role_id", jd.RoleID)
		return types.JobDescription{}, storageFailure("failed to create job description", err)
	}

	jr.log.Info("Job description created", "id", rec.ID.String(), "role_id", rec.RoleID)
	return fromJobDescriptionRecord(rec), nil
}

func (jr *jobDescriptionRepo) Get(ctx context.Context, id string) (types.JobDescription, error) {
	uid, err := parseID(id, errors.ErrCodeJobDescriptionNotFound, "job description")
	if err != nil {
		return types.JobDescription{}, err
	}

	var rec JobDescriptionRecord
	if err := jr.db.WithContext(ctx).Where("id = ?", uid).First(&rec).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return types.JobDescription{}, notFound(errors.ErrCodeJobDescriptionNotFound, "job description", id)
		}
		return types.JobDescription{}, storageFailure("failed to load job description", err)
	}
	return fromJobDescriptionRecord(rec), nil
}

func (jr *jobDescriptionRepo) List(ctx context.Context, roleID string) ([]types.JobDescription, error) {
	q := jr.db.WithContext(ctx).Order("created_at DESC")
	if roleID != "" {
		q = q.Where("role_id = ?", roleID)
	}

	var recs []JobDescriptionRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, storageFailure("failed to list job descriptions", err)
	}

	out := make([]types.JobDescription, 0, len(recs))
	for _, r := range recs {
		out = append(out, fromJobDescriptionRecord(r))
	}
	return out, nil
}

func fromJobDescriptionRecord(rec JobDescriptionRecord) types.JobDescription {
	return types.JobDescription{
		ID:        rec.ID.String(),
		RoleID:    rec.RoleID,
		RoleName:  rec.RoleName,
		Title:     rec.Title,
		Content:   rec.Content,
		CreatedAt: rec.CreatedAt,
	}
}
