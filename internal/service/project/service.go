package project

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/model"
)

// Store is the persistence collaborator for projects. DeleteProject must
// cascade to the project's tasks and re-root its child projects in the same
// transaction.
type Store interface {
	GetProject(ctx context.Context, userID, projectID string) (*model.Project, error)
	ListProjects(ctx context.Context, userID string) ([]model.Project, error)
	InsertProject(ctx context.Context, p *model.Project) error
	UpdateProject(ctx context.Context, p *model.Project) error
	DeleteProject(ctx context.Context, userID, projectID string) error
}

type Clock interface {
	Now() time.Time
}

type CreateProjectInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Color       string  `json:"color"`
	ParentID    *string `json:"parent_id"`
}

// UpdateProjectInput is a typed partial update; nil leaves a field alone.
// Setting ParentID to an empty string moves the project to the root.
type UpdateProjectInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	ParentID    *string `json:"parent_id"`
}

type Service struct {
	store  Store
	clock  Clock
	logger *zap.Logger
}

func NewService(store Store, clock Clock, logger *zap.Logger) *Service {
	return &Service{store: store, clock: clock, logger: logger}
}

func (s *Service) Create(ctx context.Context, actor model.Actor, in CreateProjectInput) (*model.Project, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", model.ErrValidation)
	}
	if in.ParentID != nil && *in.ParentID != "" {
		if _, err := s.store.GetProject(ctx, actor.ID, *in.ParentID); err != nil {
			return nil, fmt.Errorf("%w: parent project %s does not exist", model.ErrValidation, *in.ParentID)
		}
	} else {
		in.ParentID = nil
	}

	now := s.clock.Now()
	p := &model.Project{
		ID:          uuid.NewString(),
		UserID:      actor.ID,
		Name:        in.Name,
		Description: in.Description,
		Color:       in.Color,
		ParentID:    in.ParentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.InsertProject(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Project created",
		zap.String("project_id", p.ID),
		zap.String("user_id", actor.ID),
	)
	return p, nil
}

func (s *Service) Get(ctx context.Context, actor model.Actor, projectID string) (*model.Project, error) {
	return s.store.GetProject(ctx, actor.ID, projectID)
}

func (s *Service) List(ctx context.Context, actor model.Actor) ([]model.Project, error) {
	return s.store.ListProjects(ctx, actor.ID)
}

func (s *Service) Update(ctx context.Context, actor model.Actor, projectID string, in UpdateProjectInput) (*model.Project, error) {
	p, err := s.store.GetProject(ctx, actor.ID, projectID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, fmt.Errorf("%w: name must not be empty", model.ErrValidation)
		}
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Color != nil {
		p.Color = *in.Color
	}
	if in.ParentID != nil {
		if *in.ParentID == "" {
			p.ParentID = nil
		} else {
			if err := s.checkParent(ctx, actor.ID, projectID, *in.ParentID); err != nil {
				return nil, err
			}
			parent := *in.ParentID
			p.ParentID = &parent
		}
	}
	p.UpdatedAt = s.clock.Now()

	if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Project updated",
		zap.String("project_id", p.ID),
		zap.String("user_id", actor.ID),
	)
	return p, nil
}

// Delete removes the project, cascading to its tasks. Child projects are
// re-rooted by the store rather than deleted.
func (s *Service) Delete(ctx context.Context, actor model.Actor, projectID string) error {
	if err := s.store.DeleteProject(ctx, actor.ID, projectID); err != nil {
		return err
	}
	s.logger.Info("Project deleted",
		zap.String("project_id", projectID),
		zap.String("user_id", actor.ID),
	)
	return nil
}

// Tree returns the actor's projects assembled into a forest.
func (s *Service) Tree(ctx context.Context, actor model.Actor) ([]*model.ProjectNode, error) {
	projects, err := s.store.ListProjects(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return BuildTree(projects), nil
}

// checkParent rejects unknown parents and parent chains that would loop back
// to the project being moved.
func (s *Service) checkParent(ctx context.Context, userID, projectID, parentID string) error {
	if parentID == projectID {
		return fmt.Errorf("%w: project cannot be its own parent", model.ErrValidation)
	}
	seen := map[string]bool{projectID: true}
	current := parentID
	for current != "" {
		if seen[current] {
			return fmt.Errorf("%w: moving under %s would create a cycle", model.ErrValidation, parentID)
		}
		seen[current] = true
		p, err := s.store.GetProject(ctx, userID, current)
		if err != nil {
			return fmt.Errorf("%w: parent project %s does not exist", model.ErrValidation, parentID)
		}
		if p.ParentID == nil {
			break
		}
		current = *p.ParentID
	}
	return nil
}
