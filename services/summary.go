package services

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"vehicle-tracker/models"
	"vehicle-tracker/utils"
)

type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

func (s *SummaryService) Generate(records []models.CleanRecord) *models.StoreSummary {
	summary := &models.StoreSummary{
		RecordsByMake: make(map[string]int),
		RecordsByYear: make(map[string]int),
	}

	if len(records) == 0 {
		return summary
	}

	summary.TotalRecords = len(records)

	var total int
	for i := range records {
		r := &records[i]
		if r.Make != "" {
			summary.RecordsByMake[r.Make]++
		}
		if r.Year != "" {
			summary.RecordsByYear[r.Year]++
		}

		price, ok := ParsePrice(r.MSRP)
		if !ok {
			continue
		}
		if summary.PricedRecords == 0 || price < summary.MinPrice {
			summary.MinPrice = price
			summary.Cheapest = r
		}
		if summary.PricedRecords == 0 || price > summary.MaxPrice {
			summary.MaxPrice = price
			summary.MostExpensive = r
		}
		summary.PricedRecords++
		total += price
	}

	if summary.PricedRecords > 0 {
		summary.AveragePrice = round2(float64(total) / float64(summary.PricedRecords))
	}

	s.logger.Debug("[summary] %d records, %d priced, %d makes",
		summary.TotalRecords, summary.PricedRecords, len(summary.RecordsByMake))
	return summary
}

// ParsePrice reads a stored MSRP such as "$45,000" as whole dollars.
func ParsePrice(msrp string) (int, bool) {
	digits := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(msrp))
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (s *SummaryService) Print(w io.Writer, sum *models.StoreSummary) {
	overview := table.NewWriter()
	overview.SetOutputMirror(w)
	overview.SetTitle("Vehicle store")
	overview.AppendRow(table.Row{"Total trims", sum.TotalRecords})
	overview.AppendRow(table.Row{"Trims with MSRP", sum.PricedRecords})
	if sum.PricedRecords > 0 {
		overview.AppendRow(table.Row{"Average MSRP", fmt.Sprintf("$%.2f", sum.AveragePrice)})
		overview.AppendRow(table.Row{"Cheapest", describe(sum.Cheapest)})
		overview.AppendRow(table.Row{"Most expensive", describe(sum.MostExpensive)})
	}
	overview.SetStyle(table.StyleRounded)
	overview.Render()

	if len(sum.RecordsByMake) == 0 {
		fmt.Fprintln(w, "No vehicles stored")
		return
	}

	type makeCount struct {
		make  string
		count int
	}
	var counts []makeCount
	for m, c := range sum.RecordsByMake {
		counts = append(counts, makeCount{m, c})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].make < counts[j].make
	})

	byMake := table.NewWriter()
	byMake.SetOutputMirror(w)
	byMake.AppendHeader(table.Row{"Make", "Trims"})
	for _, mc := range counts {
		byMake.AppendRow(table.Row{mc.make, mc.count})
	}
	byMake.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	byMake.SetStyle(table.StyleRounded)
	byMake.Render()
}

func describe(r *models.CleanRecord) string {
	if r == nil {
		return ""
	}
	return strings.Join(strings.Fields(fmt.Sprintf("%s %s %s %s (%s)", r.Year, r.Make, r.Model, r.Trim, r.MSRP)), " ")
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
