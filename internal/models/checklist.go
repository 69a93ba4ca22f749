package models

import "math"

type Checklist struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Items []ChecklistItem `json:"items"`
}

type ChecklistItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Progress derives completion across all checklists as a rounded percentage.
// ok is false when the checklists hold no items.
func Progress(checklists []Checklist) (percent int, ok bool) {
	var done, total int
	for _, cl := range checklists {
		for _, it := range cl.Items {
			total++
			if it.Completed {
				done++
			}
		}
	}
	if total == 0 {
		return 0, false
	}
	return int(math.Round(100 * float64(done) / float64(total))), true
}

// NewChecklist returns an empty checklist with a fresh id.
func NewChecklist(title string) Checklist {
	return Checklist{ID: NewItemID("checklist"), Title: title, Items: []ChecklistItem{}}
}

// AddItem appends an unchecked entry and returns its id.
func (c *Checklist) AddItem(text string) string {
	id := NewItemID("item")
	c.Items = append(c.Items, ChecklistItem{ID: id, Text: text})
	return id
}

// Toggle flips the completed flag of the entry with the given id.
func (c *Checklist) Toggle(itemID string) bool {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Completed = !c.Items[i].Completed
			return true
		}
	}
	return false
}

func CloneChecklists(in []Checklist) []Checklist {
	out := make([]Checklist, len(in))
	for i, cl := range in {
		out[i] = Checklist{ID: cl.ID, Title: cl.Title, Items: append([]ChecklistItem(nil), cl.Items...)}
	}
	return out
}
