package store

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"personakit/internal/errors"
	"personakit/internal/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PersonaFilter narrows List results; empty fields match everything
type PersonaFilter struct {
	RoleID           string
	JobDescriptionID string
	Limit            int
}

// PersonaRepo stores persona trees together with their generation baseline
type PersonaRepo interface {
	Create(ctx context.Context, tree types.PersonaTree, baseline types.Baseline) (types.PersonaTree, error)
	Update(ctx context.Context, id string, tree types.PersonaTree, baseline types.Baseline) (types.PersonaTree, error)
	Get(ctx context.Context, id string) (types.PersonaTree, types.Baseline, error)
	List(ctx context.Context, filter PersonaFilter) ([]types.PersonaSummary, error)
	Delete(ctx context.Context, id string) error
}

type personaRepo struct {
	db  *gorm.DB
	log *errors.Logger
}

func NewPersonaRepo(db *gorm.DB, logger *errors.Logger) PersonaRepo {
	return &personaRepo{db: db, log: logger}
}

func (pr *personaRepo) Create(ctx context.Context, tree types.PersonaTree, baseline types.Baseline) (types.PersonaTree, error) {
	rec, err := toPersonaRecord(tree, baseline)
	if err != nil {
		return types.PersonaTree{}, err
	}

	if err := pr.db.WithContext(ctx).Create(&rec).Error; err != nil {
		pr.log.LogError(err, "Failed to create persona", "name", tree.Name)
		return types.PersonaTree{}, storageFailure("failed to create persona", err)
	}

	pr.log.Info("Persona created", "id", rec.ID.String(), "name", rec.Name)
	return fromPersonaRecord(rec)
}

func (pr *personaRepo) Update(ctx context.Context, id string, tree types.PersonaTree, baseline types.Baseline) (types.PersonaTree, error) {
	uid, err := parseID(id, errors.ErrCodePersonaNotFound, "persona")
	if err != nil {
		return types.PersonaTree{}, err
	}

	var saved PersonaRecord
	err = pr.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", uid).First(&saved).Error; err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(errors.ErrCodePersonaNotFound, "persona", id)
			}
			return storageFailure("failed to load persona", err)
		}

		rec, err := toPersonaRecord(tree, baseline)
		if err != nil {
			return err
		}
		// The baseline captured at generation is never replaced; a submitted
		// one is only stored when the record has none.
		stored, err := decodeBaseline(saved.Baseline)
		if err != nil {
			return err
		}
		if len(stored) > 0 || len(baseline) == 0 {
			rec.Baseline = saved.Baseline
		}

		if err := tx.Model(&saved).Updates(map[string]any{
			"name":               rec.Name,
			"persona_notes":      rec.Notes,
			"role_id":            rec.RoleID,
			"role_name":          rec.RoleName,
			"job_description_id": rec.JobDescriptionID,
			"categories":         rec.Categories,
			"baseline":           rec.Baseline,
			"category_count":     rec.CategoryCount,
		}).Error; err != nil {
			return storageFailure("failed to update persona", err)
		}
		return tx.Where("id = ?", uid).First(&saved).Error
	})
	if err != nil {
		pr.log.LogError(err, "Failed to update persona", "id", id)
		return types.PersonaTree{}, err
	}

	pr.log.Info("Persona updated", "id", id, "name", saved.Name)
	return fromPersonaRecord(saved)
}

func (pr *personaRepo) Get(ctx context.Context, id string) (types.PersonaTree, types.Baseline, error) {
	uid, err := parseID(id, errors.ErrCodePersonaNotFound, "persona")
	if err != nil {
		return types.PersonaTree{}, nil, err
	}

	var rec PersonaRecord
	if err := pr.db.WithContext(ctx).Where("id = ?", uid).First(&rec).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return types.PersonaTree{}, nil, notFound(errors.ErrCodePersonaNotFound, "persona", id)
		}
		return types.PersonaTree{}, nil, storageFailure("failed to load persona", err)
	}

	tree, err := fromPersonaRecord(rec)
	if err != nil {
		return types.PersonaTree{}, nil, err
	}
	baseline, err := decodeBaseline(rec.Baseline)
	if err != nil {
		return types.PersonaTree{}, nil, err
	}
	return tree, baseline, nil
}

func (pr *personaRepo) List(ctx context.Context, filter PersonaFilter) ([]types.PersonaSummary, error) {
	q := pr.db.WithContext(ctx).Model(&PersonaRecord{}).Order("updated_at DESC")
	if filter.RoleID != "" {
		q = q.Where("role_id = ?", filter.RoleID)
	}
	if filter.JobDescriptionID != "" {
		q = q.Where("job_description_id = ?", filter.JobDescriptionID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var recs []PersonaRecord
	if err := q.Select("id", "name", "role_id", "role_name", "job_description_id", "category_count", "updated_at").
		Find(&recs).Error; err != nil {
		return nil, storageFailure("failed to list personas", err)
	}

	out := make([]types.PersonaSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, types.PersonaSummary{
			ID:               r.ID.String(),
			Name:             r.Name,
			RoleID:           r.RoleID,
			RoleName:         r.RoleName,
			JobDescriptionID: r.JobDescriptionID,
			CategoryCount:    r.CategoryCount,
			UpdatedAt:        r.UpdatedAt,
		})
	}
	return out, nil
}

func (pr *personaRepo) Delete(ctx context.Context, id string) error {
	uid, err := parseID(id, errors.ErrCodePersonaNotFound, "persona")
	if err != nil {
		return err
	}

	res := pr.db.WithContext(ctx).Where("id = ?", uid).Delete(&PersonaRecord{})
	if res.Error != nil {
		return storageFailure("failed to delete persona", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(errors.ErrCodePersonaNotFound, "persona", id)
	}
	pr.log.Info("Persona deleted", "id", id)
	return nil
}

func toPersonaRecord(tree types.PersonaTree, baseline types.Baseline) (PersonaRecord, error) {
	categories := tree.Categories
	if categories == nil {
		categories = []types.Category{}
	}
	catJSON, err := json.Marshal(categories)
	if err != nil {
		return PersonaRecord{}, storageFailure("failed to encode categories", err)
	}

	rec := PersonaRecord{
		Name:             tree.Name,
		Notes:            tree.Notes,
		RoleID:           tree.RoleID,
		RoleName:         tree.RoleName,
		JobDescriptionID: tree.JobDescriptionID,
		Categories:       datatypes.JSON(catJSON),
		CategoryCount:    len(categories),
	}
	if len(baseline) > 0 {
		baseJSON, err := json.Marshal(baseline)
		if err != nil {
			return PersonaRecord{}, storageFailure("failed to encode baseline", err)
		}
		rec.Baseline = datatypes.JSON(baseJSON)
	}
	return rec, nil
}

func fromPersonaRecord(rec PersonaRecord) (types.PersonaTree, error) {
	tree := types.PersonaTree{
		ID:               rec.ID.String(),
		Name:             rec.Name,
		Notes:            rec.Notes,
		RoleID:           rec.RoleID,
		RoleName:         rec.RoleName,
		JobDescriptionID: rec.JobDescriptionID,
		Categories:       []types.Category{},
	}
	if len(rec.Categories) > 0 {
		if err := json.Unmarshal(rec.Categories, &tree.Categories); err != nil {
			return types.PersonaTree{}, storageFailure("stored categories are corrupt", err)
		}
	}
	return tree, nil
}

func decodeBaseline(raw datatypes.JSON) (types.Baseline, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var baseline types.Baseline
	if err := json.Unmarshal(raw, &baseline); err != nil {
		return nil, storageFailure("stored baseline is corrupt", err)
	}
	return baseline, nil
}
