package erp

import (
	"sort"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/models"
)

// builtinExercises is the fixed ERP catalog shipped with the app.
var builtinExercises = []models.ERPExercise{
	{ID: "cont_doorknob", Title: "Touch a doorknob without washing", Category: "contamination", Difficulty: 2, TargetDuration: 300, ResponsePrevent: "Delay hand washing until the timer ends"},
	{ID: "cont_trash", Title: "Hold a trash bag", Category: "contamination", Difficulty: 3, TargetDuration: 420, ResponsePrevent: "No washing, no wiping"},
	{ID: "cont_floor", Title: "Sit on the floor of a public place", Category: "contamination", Difficulty: 4, TargetDuration: 600, ResponsePrevent: "Do not change clothes afterwards"},
	{ID: "check_door", Title: "Lock the door once and leave", Category: "checking", Difficulty: 2, TargetDuration: 600, ResponsePrevent: "No returning to re-check"},
	{ID: "check_stove", Title: "Leave the kitchen after cooking", Category: "checking", Difficulty: 3, TargetDuration: 900, ResponsePrevent: "Check the stove at most once"},
	{ID: "sym_desk", Title: "Leave your desk slightly untidy", Category: "symmetry", Difficulty: 2, TargetDuration: 1800, ResponsePrevent: "No straightening for the whole duration"},
	{ID: "sym_books", Title: "Shuffle the bookshelf order", Category: "symmetry", Difficulty: 3, TargetDuration: 3600, ResponsePrevent: "Leave the shelf as is overnight"},
	{ID: "intr_note", Title: "Write the intrusive thought down", Category: "intrusive", Difficulty: 3, TargetDuration: 300, ResponsePrevent: "No neutralizing ritual afterwards"},
	{ID: "intr_loop", Title: "Listen to the thought on a loop tape", Category: "intrusive", Difficulty: 4, TargetDuration: 900, ResponsePrevent: "No reassurance seeking"},
	{ID: "hoard_discard", Title: "Discard one saved item", Category: "hoarding", Difficulty: 3, TargetDuration: 600, ResponsePrevent: "Do not retrieve it from the bin"},
}

// Catalog is a read-only view over the built-in exercise list.
type Catalog struct {
	byID map[string]models.ERPExercise
	all  []models.ERPExercise
}

func NewCatalog() *Catalog {
	c := &Catalog{
		byID: make(map[string]models.ERPExercise, len(builtinExercises)),
		all:  append([]models.ERPExercise(nil), builtinExercises...),
	}
	for _, ex := range c.all {
		c.byID[ex.ID] = ex
	}
	return c
}

// All returns every exercise sorted by category then difficulty.
func (c *Catalog) All() []models.ERPExercise {
	out := append([]models.ERPExercise(nil), c.all...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Difficulty < out[j].Difficulty
	})
	return out
}

// ByID looks up a single exercise.
func (c *Catalog) ByID(id string) (models.ERPExercise, bool) {
	ex, ok := c.byID[id]
	return ex, ok
}

// ByCategory filters the catalog.
func (c *Catalog) ByCategory(category string) []models.ERPExercise {
	var out []models.ERPExercise
	for _, ex := range c.all {
		if ex.Category == category {
			out = append(out, ex)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Difficulty < out[j].Difficulty })
	return out
}
