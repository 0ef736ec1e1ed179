package tones

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Uncategorized is reported for tones that belong to no category.
const Uncategorized = "Uncategorized"

// Category is a named group of tones.
type Category struct {
	Name  string   `yaml:"name" json:"name"`
	Tones []string `yaml:"tones" json:"tones"`
}

// Catalog is an ordered tone taxonomy.
type Catalog struct {
	categories []Category
}

type catalogFile struct {
	Categories []Category `yaml:"categories"`
}

var defaultCategories = []Category{
	{Name: "Professional", Tones: []string{
		"Formal", "Authoritative", "Confident", "Analytical", "Objective",
		"Diplomatic", "Precise", "Respectful", "Informative", "Instructional",
	}},
	{Name: "Persuasive", Tones: []string{
		"Convincing", "Compelling", "Urgent", "Promotional", "Assertive",
		"Motivational", "Inspirational", "Enthusiastic", "Passionate", "Persuasive",
	}},
	{Name: "Conversational", Tones: []string{
		"Casual", "Friendly", "Approachable", "Relatable", "Personable",
		"Warm", "Inviting", "Engaging", "Chatty", "Informal",
	}},
	{Name: "Creative", Tones: []string{
		"Imaginative", "Playful", "Humorous", "Witty", "Quirky",
		"Whimsical", "Entertaining", "Surprising", "Artistic", "Innovative",
	}},
	{Name: "Emotional", Tones: []string{
		"Empathetic", "Compassionate", "Supportive", "Encouraging", "Reassuring",
		"Sympathetic", "Caring", "Sensitive", "Heartfelt", "Sincere",
	}},
	{Name: "Direct", Tones: []string{
		"Straightforward", "Clear", "Concise", "Brief", "Blunt",
		"Candid", "Frank", "Explicit", "Direct", "No-nonsense",
	}},
	{Name: "Descriptive", Tones: []string{
		"Detailed", "Vivid", "Expressive", "Elaborate", "Illustrative",
		"Colorful", "Rich", "Evocative", "Picturesque", "Comprehensive",
	}},
	{Name: "Technical", Tones: []string{
		"Specialized", "Precise", "Factual", "Methodical", "Systematic",
		"Logical", "Detailed", "Accurate", "Thorough", "Rigorous",
	}},
	{Name: "Collaborative", Tones: []string{
		"Inclusive", "Cooperative", "Supportive", "Team-oriented", "Participatory",
		"Unifying", "Collective", "Facilitative", "Accommodating", "Consensus-building",
	}},
	{Name: "Urgent", Tones: []string{
		"Time-sensitive", "Critical", "Immediate", "Pressing", "Crucial",
		"Vital", "Essential", "Imperative", "Expedient", "Priority",
	}},
}

// Default returns the built-in taxonomy.
func Default() *Catalog {
	return New(defaultCategories)
}

// New copies categories into a catalog.
func New(categories []Category) *Catalog {
	out := make([]Category, 0, len(categories))
	for _, c := range categories {
		out = append(out, Category{Name: c.Name, Tones: append([]string(nil), c.Tones...)})
	}
	return &Catalog{categories: out}
}

// Load reads a YAML catalog of the form:
//
//	categories:
//	  - name: Professional
//	    tones: [Formal, Precise]
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tones file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tones file: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, errors.New("tones file defines no categories")
	}
	seen := make(map[string]struct{}, len(f.Categories))
	for i, c := range f.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("tones file: category %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("tones file: duplicate category %q", name)
		}
		seen[name] = struct{}{}

		cleaned := make([]string, 0, len(c.Tones))
		for _, tone := range c.Tones {
			if tone = strings.TrimSpace(tone); tone != "" {
				cleaned = append(cleaned, tone)
			}
		}
		if len(cleaned) == 0 {
			return nil, fmt.Errorf("tones file: category %q has no tones", name)
		}
		f.Categories[i] = Category{Name: name, Tones: cleaned}
	}
	return &Catalog{categories: f.Categories}, nil
}

func (c *Catalog) Categories() []Category {
	return New(c.categories).categories
}

// All flattens the catalog in category order. Tones listed under several
// categories appear once per category.
func (c *Catalog) All() []string {
	var out []string
	for _, cat := range c.categories {
		out = append(out, cat.Tones...)
	}
	return out
}

// CategoryFor returns the first category containing tone.
func (c *Catalog) CategoryFor(tone string) string {
	for _, cat := range c.categories {
		for _, t := range cat.Tones {
			if t == tone {
				return cat.Name
			}
		}
	}
	return Uncategorized
}

func (c *Catalog) Contains(tone string) bool {
	return c.CategoryFor(tone) != Uncategorized
}

// Unknown returns the selected tones missing from the catalog, in order.
func (c *Catalog) Unknown(selected []string) []string {
	var out []string
	for _, tone := range selected {
		if !c.Contains(tone) {
			out = append(out, tone)
		}
	}
	return out
}

// ParseSelection turns "Formal, Witty,,Formal" into an ordered set:
// entries are trimmed, blanks dropped and repeats collapsed onto the first
// occurrence.
func ParseSelection(raw string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		tone := strings.TrimSpace(part)
		if tone == "" {
			continue
		}
		if _, ok := seen[tone]; ok {
			continue
		}
		seen[tone] = struct{}{}
		out = append(out, tone)
	}
	return out
}
