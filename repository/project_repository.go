package repository

import (
	"context"
	"errors"

	"reelcomp/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProjectRepository 项目索引数据访问接口
type ProjectRepository interface {
	List(ctx context.Context) ([]model.Project, error)
	GetByID(ctx context.Context, id string) (*model.Project, error)
	Upsert(ctx context.Context, project *model.Project) error
	Delete(ctx context.Context, id string) error
}

// gormProjectRepository GORM 实现
type gormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository 创建 GORM 项目仓库
func NewGormProjectRepository(db *gorm.DB) ProjectRepository {
	return &gormProjectRepository{db: db}
}

// List 按 position 升序，第一个即兜底项目
func (r *gormProjectRepository) List(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	err := r.db.WithContext(ctx).
		Order("position ASC").
		Order("id ASC").
		Find(&projects).Error
	return projects, err
}

// GetByID 不存在时返回 nil, nil
func (r *gormProjectRepository) GetByID(ctx context.Context, id string) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

// Upsert 按主键插入或更新
func (r *gormProjectRepository) Upsert(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(project).Error
}

// Delete 删除项目
func (r *gormProjectRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Project{}).Error
}
