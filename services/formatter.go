package services

import (
	"regexp"
	"strings"

	"vehicle-tracker/models"
	"vehicle-tracker/utils"
)

var (
	yearRegexp     = regexp.MustCompile(`[0-9]{4}`)
	fullYearRegexp = regexp.MustCompile(`^[0-9]{4}$`)
	msrpKeepRegexp = regexp.MustCompile(`[$0-9,]`)
)

// Formatter turns RawRecords into CleanRecords.
type Formatter struct {
	logger *utils.Logger
}

// NewFormatter creates a Formatter with the given logger.
func NewFormatter(logger *utils.Logger) *Formatter {
	return &Formatter{logger: logger}
}

// Format normalizes one raw record. Each step reads the fields cleaned by
// the previous ones, so the order matters. A record without a usable year
// comes back as a *models.DroppedRecord error.
func (f *Formatter) Format(raw models.RawRecord) (models.CleanRecord, error) {
	year, ok := extractYear(raw.Year)
	if !ok {
		return models.CleanRecord{}, &models.DroppedRecord{Reason: models.ErrInvalidYear, Raw: raw}
	}

	rec := models.CleanRecord{
		Year:  year,
		Make:  strings.TrimSpace(StripTags(raw.Make)),
		MSRP:  cleanMSRP(StripTags(raw.MSRP)),
		Trim:  FilterText(StripTags(raw.Trim), TrimExtras),
		Model: FilterText(StripTags(raw.Model), ModelExtras),
	}

	// Make first, then the cleaned model name, are stripped from the
	// front of words. Only the first occurrence goes: trims such as
	// "Sport Sport Appearance" legitimately repeat a word.
	if rec.Make != "" {
		makePattern := prefixPattern(rec.Make)
		rec.Model = strings.TrimSpace(removeFirst(makePattern, rec.Model))
		rec.Trim = strings.TrimSpace(removeFirst(makePattern, rec.Trim))
	}

	if rec.Model != "" {
		modelPattern := prefixPattern(rec.Model)
		if !fullMatch(modelPattern, rec.Trim) {
			rec.Trim = strings.TrimSpace(removeFirst(modelPattern, rec.Trim))
		}
	}

	// model-year pages sometimes leak the year into the make or trim
	rec.Make = strings.TrimSpace(strings.ReplaceAll(rec.Make, rec.Year, ""))
	rec.Trim = strings.TrimSpace(strings.ReplaceAll(rec.Trim, rec.Year, ""))
	rec.Make = strings.ToUpper(rec.Make)

	if f.logger != nil {
		f.logger.Debug("[formatter] %s %s %s %s → %s", rec.Year, rec.Make, rec.Model, rec.Trim, rec.MSRP)
	}
	return rec, nil
}

func extractYear(raw string) (string, bool) {
	year := strings.TrimSpace(raw)
	if fullYearRegexp.MatchString(year) {
		return year, true
	}
	match := yearRegexp.FindString(year)
	return match, match != ""
}

// cleanMSRP drops cents and anything after them, keeps "$", digits and
// commas, then formats the result.
func cleanMSRP(raw string) string {
	if i := strings.Index(raw, "."); i != -1 {
		raw = raw[:i]
	}
	kept := strings.Join(msrpKeepRegexp.FindAllString(raw, -1), "")
	return CleanPrice(kept)
}

// prefixPattern matches name at the start of a word, case-insensitively,
// followed by whitespace.
func prefixPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\s`)
}

func fullMatch(re *regexp.Regexp, s string) bool {
	loc := re.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

func removeFirst(re *regexp.Regexp, s string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + s[loc[1]:]
}
