package features

import (
	"fmt"
	"sort"
	"strings"

	"riego/pkg/errors"
)

// Season is the coarse irrigation-demand tier for a crop and month.
type Season string

const (
	SeasonHigh Season = "Alta"
	SeasonLow  Season = "Baja"
)

// MonthRange is an inclusive month span that may wrap the year end (11..2).
type MonthRange struct {
	From int `json:"desde"`
	To   int `json:"hasta"`
}

func (r MonthRange) Valid() bool {
	return r.From >= 1 && r.From <= 12 && r.To >= 1 && r.To <= 12
}

func (r MonthRange) Contains(month int) bool {
	if !r.Valid() {
		return false
	}
	if r.From <= r.To {
		return month >= r.From && month <= r.To
	}
	return month >= r.From || month <= r.To
}

// Crop is one catalog entry.
type Crop struct {
	ID         uint       `json:"id"`
	Name       string     `json:"nombre"`
	Aliases    []string   `json:"alias"`
	HighSeason MonthRange `json:"temporadaAlta"`
}

// UnknownCropError names the crop text that matched no catalog entry.
type UnknownCropError struct {
	Text string
}

func (e *UnknownCropError) Error() string {
	if strings.TrimSpace(e.Text) == "" {
		return "crop name is empty"
	}
	return fmt.Sprintf("crop %q not recognized", e.Text)
}

// Catalog maps folded crop spellings to canonical crops. It is read-only after
// construction and safe for concurrent use.
type Catalog struct {
	crops []Crop
	byKey map[string]int
	byID  map[uint]int
}

// DefaultCrops is the built-in table used when no catalog file is configured.
func DefaultCrops() []Crop {
	return []Crop{
		{ID: 1, Name: "Maíz", Aliases: []string{"maiz", "maize", "corn"}, HighSeason: MonthRange{From: 11, To: 2}},
		{ID: 2, Name: "Palta", Aliases: []string{"palta", "aguacate", "avocado"}, HighSeason: MonthRange{From: 4, To: 8}},
		{ID: 3, Name: "Espárrago", Aliases: []string{"esparrago", "esparragos", "asparagus"}, HighSeason: MonthRange{From: 8, To: 12}},
		{ID: 4, Name: "Mango", Aliases: []string{"mango"}, HighSeason: MonthRange{From: 10, To: 1}},
	}
}

// DefaultCatalog builds the catalog from DefaultCrops.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultCrops())
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog indexes crops by id, folded name and folded aliases. Duplicate
// ids or an alias claimed by two crops are configuration errors.
func NewCatalog(crops []Crop) (*Catalog, error) {
	if len(crops) == 0 {
		return nil, errors.Newf("crop catalog is empty").
			Category(errors.CategoryConfiguration).Component("features").Build()
	}
	c := &Catalog{byKey: map[string]int{}, byID: map[uint]int{}}
	for _, cr := range crops {
		if cr.ID == 0 || strings.TrimSpace(cr.Name) == "" {
			return nil, errors.Newf("crop entry needs id and name: %+v", cr).
				Category(errors.CategoryConfiguration).Component("features").Build()
		}
		if _, dup := c.byID[cr.ID]; dup {
			return nil, errors.Newf("duplicate crop id %d", cr.ID).
				Category(errors.CategoryConfiguration).Component("features").Build()
		}
		idx := len(c.crops)
		c.crops = append(c.crops, cr)
		c.byID[cr.ID] = idx
		keys := append([]string{cr.Name}, cr.Aliases...)
		for _, k := range keys {
			fk := FoldKey(k)
			if fk == "" {
				continue
			}
			if prev, ok := c.byKey[fk]; ok && prev != idx {
				return nil, errors.Newf("alias %q maps to crops %d and %d", k, c.crops[prev].ID, cr.ID).
					Category(errors.CategoryConfiguration).Component("features").Build()
			}
			c.byKey[fk] = idx
		}
	}
	return c, nil
}

// Resolve maps free crop text to its canonical crop. Unknown or empty text
// fails with *UnknownCropError; there is no default crop.
func (c *Catalog) Resolve(raw string) (Crop, error) {
	if idx, ok := c.byKey[FoldKey(raw)]; ok {
		return c.crops[idx], nil
	}
	return Crop{}, errors.New(&UnknownCropError{Text: raw}).
		Category(errors.CategoryValidation).Component("features").Build()
}

// ByID returns the crop with the given id.
func (c *Catalog) ByID(id uint) (Crop, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Crop{}, false
	}
	return c.crops[idx], true
}

// Crops returns the entries sorted by id.
func (c *Catalog) Crops() []Crop {
	out := make([]Crop, len(c.crops))
	copy(out, c.crops)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Season returns the demand tier for a crop name in the given month. Names
// that do not resolve get SeasonLow.
func (c *Catalog) Season(cropName string, month int) Season {
	cr, err := c.Resolve(cropName)
	if err != nil {
		return SeasonLow
	}
	if cr.HighSeason.Contains(month) {
		return SeasonHigh
	}
	return SeasonLow
}
