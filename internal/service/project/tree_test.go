package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/model"
)

func parent(id string) *string { return &id }

func TestBuildTree(t *testing.T) {
	projects := []model.Project{
		{ID: "root1", Name: "Work"},
		{ID: "child1", Name: "Reports", ParentID: parent("root1")},
		{ID: "child2", Name: "Meetings", ParentID: parent("root1")},
		{ID: "grandchild", Name: "Q1", ParentID: parent("child1")},
		{ID: "root2", Name: "Home"},
	}

	roots := BuildTree(projects)
	require.Len(t, roots, 2)
	assert.Equal(t, "root1", roots[0].ID)
	assert.Equal(t, "root2", roots[1].ID)

	work := roots[0]
	require.Len(t, work.Children, 2)
	assert.Equal(t, "child1", work.Children[0].ID)
	assert.Equal(t, "child2", work.Children[1].ID)

	require.Len(t, work.Children[0].Children, 1)
	assert.Equal(t, "grandchild", work.Children[0].Children[0].ID)

	assert.Empty(t, roots[1].Children)
}

func TestBuildTreeMissingParentBecomesRoot(t *testing.T) {
	projects := []model.Project{
		{ID: "a", Name: "Orphan", ParentID: parent("gone")},
	}
	roots := BuildTree(projects)
	require.Len(t, roots, 1)
	assert.Equal(t, "a", roots[0].ID)
}

func TestBuildTreeEmpty(t *testing.T) {
	assert.Empty(t, BuildTree(nil))
}

func TestBuildTreeChildrenNeverNil(t *testing.T) {
	roots := BuildTree([]model.Project{{ID: "a"}})
	require.Len(t, roots, 1)
	assert.NotNil(t, roots[0].Children)
}
