package project

import "taskboard/internal/model"

// BuildTree assembles the flat project list into a forest of root nodes.
// Two passes: index every project by id, then link each node under its
// parent. A node whose parent id points outside the collection is treated as
// a root rather than an error. Children keep the input's relative order.
func BuildTree(projects []model.Project) []*model.ProjectNode {
	nodes := make(map[string]*model.ProjectNode, len(projects))
	order := make([]*model.ProjectNode, 0, len(projects))
	for _, p := range projects {
		n := &model.ProjectNode{Project: p, Children: []*model.ProjectNode{}}
		nodes[p.ID] = n
		order = append(order, n)
	}

	roots := make([]*model.ProjectNode, 0, len(order))
	for _, n := range order {
		if n.ParentID != nil {
			if parent, ok := nodes[*n.ParentID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}
