// Package templates is a library of prebuilt analytics queries for the
// reference shop schema (customers, orders, order_items, products). The
// queries are written for SQLite.
package templates

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed queries/*.sql
var queryFiles embed.FS

// Difficulty levels.
const (
	DifficultyIntermediate = "Intermediate"
	DifficultyAdvanced     = "Advanced"
)

// Template is one prebuilt query.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"`
	Dialect     string `json:"dialect"`
	SQL         string `json:"sql"`
}

// catalog lists template metadata in display order. SQL is loaded from
// queries/<id>.sql.
var catalog = []Template{
	{
		ID:          "rfm_analysis",
		Name:        "RFM Analysis (Recency, Frequency, Monetary)",
		Description: "Segment customers based on purchase behavior",
		Category:    "Customer Segmentation",
		Difficulty:  DifficultyAdvanced,
	},
	{
		ID:          "cohort_analysis",
		Name:        "Cohort Analysis by Month",
		Description: "Track customer retention over time by their first purchase month",
		Category:    "Customer Retention",
		Difficulty:  DifficultyAdvanced,
	},
	{
		ID:          "product_affinity",
		Name:        "Product Affinity Analysis",
		Description: "Find products frequently bought together",
		Category:    "Product Analytics",
		Difficulty:  DifficultyAdvanced,
	},
	{
		ID:          "sales_trends",
		Name:        "Sales Trend Analysis with Growth",
		Description: "Monthly sales with month-over-month growth rates",
		Category:    "Sales Analytics",
		Difficulty:  DifficultyIntermediate,
	},
	{
		ID:          "customer_lifetime_value",
		Name:        "Customer Lifetime Value (CLV)",
		Description: "Calculate total value and metrics per customer",
		Category:    "Customer Analytics",
		Difficulty:  DifficultyIntermediate,
	},
	{
		ID:          "abc_analysis",
		Name:        "ABC Analysis (Product Classification)",
		Description: "Classify products by revenue contribution (Pareto principle)",
		Category:    "Product Analytics",
		Difficulty:  DifficultyAdvanced,
	},
	{
		ID:          "sales_funnel",
		Name:        "Sales Conversion Funnel",
		Description: "Track conversion through the sales process",
		Category:    "Sales Analytics",
		Difficulty:  DifficultyIntermediate,
	},
	{
		ID:          "category_performance",
		Name:        "Product Category Performance",
		Description: "Compare performance across product categories",
		Category:    "Product Analytics",
		Difficulty:  DifficultyIntermediate,
	},
}

// Library is an immutable, ordered set of templates. It is safe for
// concurrent use.
type Library struct {
	templates []Template
	byID      map[string]int
}

// Default loads the built-in templates. It panics if an embedded query is
// missing, which only a broken build can cause.
func Default() *Library {
	lib, err := load(catalog)
	if err != nil {
		panic(err)
	}
	return lib
}

// NewLibrary builds a library from templates whose SQL is already set.
// Later entries replace earlier ones with the same id.
func NewLibrary(ts ...Template) *Library {
	lib := &Library{byID: make(map[string]int, len(ts))}
	for _, t := range ts {
		if i, ok := lib.byID[t.ID]; ok {
			lib.templates[i] = t
			continue
		}
		lib.byID[t.ID] = len(lib.templates)
		lib.templates = append(lib.templates, t)
	}
	return lib
}

func load(entries []Template) (*Library, error) {
	lib := &Library{
		templates: make([]Template, 0, len(entries)),
		byID:      make(map[string]int, len(entries)),
	}
	for _, t := range entries {
		body, err := queryFiles.ReadFile("queries/" + t.ID + ".sql")
		if err != nil {
			return nil, fmt.Errorf("load template %s: %w", t.ID, err)
		}
		if _, dup := lib.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %s", t.ID)
		}
		t.SQL = strings.TrimSpace(string(body))
		t.Dialect = "sqlite"
		lib.byID[t.ID] = len(lib.templates)
		lib.templates = append(lib.templates, t)
	}
	return lib, nil
}

// All returns every template in catalog order.
func (l *Library) All() []Template {
	return append([]Template(nil), l.templates...)
}

// Get returns the template with id.
func (l *Library) Get(id string) (Template, bool) {
	i, ok := l.byID[id]
	if !ok {
		return Template{}, false
	}
	return l.templates[i], true
}

// ByCategory returns the templates whose category equals category,
// ignoring case. An empty category returns all templates.
func (l *Library) ByCategory(category string) []Template {
	if category == "" {
		return l.All()
	}
	out := []Template{}
	for _, t := range l.templates {
		if strings.EqualFold(t.Category, category) {
			out = append(out, t)
		}
	}
	return out
}

// Categories returns the distinct categories, sorted.
func (l *Library) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range l.templates {
		if !seen[t.Category] {
			seen[t.Category] = true
			out = append(out, t.Category)
		}
	}
	sort.Strings(out)
	return out
}

// IDs returns the template ids in catalog order.
func (l *Library) IDs() []string {
	ids := make([]string, len(l.templates))
	for i, t := range l.templates {
		ids[i] = t.ID
	}
	return ids
}
