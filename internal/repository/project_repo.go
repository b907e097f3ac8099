package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskboard/internal/model"
)

type ProjectRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ProjectRepository) InsertProject(ctx context.Context, p *model.Project) error {
	r.logger.Debug("Inserting project",
		zap.String("user_id", p.UserID),
		zap.String("name", p.Name),
	)

	query := `
        INSERT INTO projects (id, user_id, name, description, color, parent_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.UserID,
		p.Name,
		p.Description,
		p.Color,
		p.ParentID,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err))
		return err
	}

	r.logger.Info("Project inserted successfully",
		zap.String("project_id", p.ID),
		zap.String("user_id", p.UserID),
	)
	return nil
}

func (r *ProjectRepository) GetProject(ctx context.Context, userID, projectID string) (*model.Project, error) {
	query := `
        SELECT id, user_id, name, description, color, parent_id, created_at, updated_at
        FROM projects
        WHERE id = $1 AND user_id = $2
    `
	var p model.Project
	err := r.db.QueryRow(ctx, query, projectID, userID).Scan(
		&p.ID, &p.UserID, &p.Name, &p.Description, &p.Color, &p.ParentID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: project %s", model.ErrNotFound, projectID)
		}
		r.logger.Error("Failed to query project",
			zap.Error(err),
			zap.String("project_id", projectID),
		)
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepository) ListProjects(ctx context.Context, userID string) ([]model.Project, error) {
	r.logger.Debug("Listing projects for user", zap.String("user_id", userID))
	query := `
        SELECT id, user_id, name, description, color, parent_id, created_at, updated_at
        FROM projects
        WHERE user_id = $1
        ORDER BY created_at
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to query projects",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return nil, err
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Name, &p.Description, &p.Color, &p.ParentID, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			r.logger.Error("Failed to scan project row", zap.Error(err))
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) UpdateProject(ctx context.Context, p *model.Project) error {
	query := `
        UPDATE projects
        SET name = $1, description = $2, color = $3, parent_id = $4, updated_at = $5
        WHERE id = $6 AND user_id = $7
    `
	result, err := r.db.Exec(ctx, query,
		p.Name,
		p.Description,
		p.Color,
		p.ParentID,
		p.UpdatedAt,
		p.ID,
		p.UserID,
	)
	if err != nil {
		r.logger.Error("Failed to update project",
			zap.Error(err),
			zap.String("project_id", p.ID),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: project %s", model.ErrNotFound, p.ID)
	}
	return nil
}

// DeleteProject removes the project, cascading to its tasks (with their
// subtasks and history) and re-rooting child projects, all in one
// transaction.
func (r *ProjectRepository) DeleteProject(ctx context.Context, userID, projectID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1 AND user_id = $2)`,
		projectID, userID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: project %s", model.ErrNotFound, projectID)
	}

	// Subtasks and history rows go with their tasks via ON DELETE CASCADE.
	if _, err := tx.Exec(ctx,
		`DELETE FROM tasks WHERE project_id = $1 AND user_id = $2`,
		projectID, userID,
	); err != nil {
		r.logger.Error("Failed to delete project tasks",
			zap.Error(err),
			zap.String("project_id", projectID),
		)
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE projects SET parent_id = NULL WHERE parent_id = $1 AND user_id = $2`,
		projectID, userID,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM projects WHERE id = $1 AND user_id = $2`,
		projectID, userID,
	); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	r.logger.Info("Project deleted",
		zap.String("project_id", projectID),
		zap.String("user_id", userID),
	)
	return nil
}
