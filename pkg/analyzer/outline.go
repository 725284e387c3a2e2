package analyzer

import "github.com/dtnitsch/docbundle/models"

// Outline nests a flat heading list by level. A heading becomes a child of the
// nearest preceding heading with a lower level. The input is not modified.
func Outline(headings []models.Heading) []models.Heading {
	var roots []models.Heading
	// stack holds the path from a root to the current insertion point.
	var stack []*models.Heading

	for _, h := range headings {
		node := models.Heading{Level: h.Level, Text: h.Text, ID: h.ID}
		for len(stack) > 0 && stack[len(stack)-1].Level >= node.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, node)
			stack = append(stack, &roots[len(roots)-1])
			continue
		}
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, node)
		stack = append(stack, &parent.Children[len(parent.Children)-1])
	}
	return roots
}
