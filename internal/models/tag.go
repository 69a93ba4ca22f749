package models

// Tag identity is ID; other fields are display data.
type Tag struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	AIGenerated bool   `json:"aiGenerated,omitempty"`
}

// TagResult is the output of tag generation for a piece of content.
type TagResult struct {
	Tags            []Tag  `json:"tags"`
	Description     string `json:"description"`
	SuggestedFolder string `json:"suggestedFolder,omitempty"`
}

// MergeTags returns the union of existing and incoming deduplicated by ID.
// Order follows first appearance; the value kept for an ID is the last one seen.
func MergeTags(existing, incoming []Tag) []Tag {
	index := make(map[string]int, len(existing)+len(incoming))
	merged := make([]Tag, 0, len(existing)+len(incoming))

	add := func(tag Tag) {
		if i, ok := index[tag.ID]; ok {
			merged[i] = tag
			return
		}
		index[tag.ID] = len(merged)
		merged = append(merged, tag)
	}

	for _, tag := range existing {
		add(tag)
	}
	for _, tag := range incoming {
		add(tag)
	}
	return merged
}
