package models

import "strings"

// Manufacturer describes what a single crawl session covers. A plain
// manufacturer has no Members; a group (one crawl over several related
// brands) lists every brand name it produces rows for.
type Manufacturer struct {
	Key      string   `yaml:"key" validate:"required"`
	Name     string   `yaml:"name" validate:"required"`
	LongName string   `yaml:"long_name"`
	Members  []string `yaml:"members" validate:"dive,required"`
	Site     *Site    `yaml:"site" validate:"omitempty"`
}

// IsGroup reports whether the manufacturer covers several makes.
func (m Manufacturer) IsGroup() bool {
	return len(m.Members) > 0
}

// Identity returns the lower-cased make names whose stored rows belong to
// this manufacturer. Groups match any member plus the group key, which is
// what make-less records of a group crawl are stamped with; otherwise the
// long name wins over the key.
func (m Manufacturer) Identity() []string {
	if m.IsGroup() {
		out := make([]string, 0, len(m.Members)+1)
		for _, name := range m.Members {
			out = append(out, strings.ToLower(strings.TrimSpace(name)))
		}
		return append(out, strings.ToLower(strings.TrimSpace(m.Key)))
	}
	name := m.LongName
	if name == "" {
		name = m.Key
	}
	return []string{strings.ToLower(strings.TrimSpace(name))}
}

// MakeLabel is the upper-case make collectors stamp on raw records.
func (m Manufacturer) MakeLabel() string {
	if m.LongName != "" {
		return strings.ToUpper(m.LongName)
	}
	return strings.ToUpper(m.Key)
}

// Site configures the generic selector collector for one manufacturer.
type Site struct {
	StartURLs []string `yaml:"start_urls" validate:"required,min=1,dive,url"`
	Render    bool     `yaml:"render"`
	Item      string   `yaml:"item" validate:"required"`
	Year      Selector `yaml:"year"`
	Make      Selector `yaml:"make"`
	Model     Selector `yaml:"model"`
	Trim      Selector `yaml:"trim"`
	MSRP      Selector `yaml:"msrp"`
}

// Selector locates one raw field inside an item. Value is used verbatim
// when CSS is empty; Attr reads an attribute instead of the text.
type Selector struct {
	CSS   string `yaml:"css"`
	Attr  string `yaml:"attr"`
	Value string `yaml:"value"`
}
