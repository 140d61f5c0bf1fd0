package catalog

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// ExportFiltered writes one CSV row per venue with probability at or above
// threshold: name, address, probability as a percentage, place ID. Separator
// characters inside field values are stripped rather than escaped so the
// output stays unambiguous for naive consumers.
func (c *Collection) ExportFiltered(w io.Writer, threshold float64) error {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Name", "Address", "Pool Table Probability", "Place ID"})
	for _, v := range c.Filtered(threshold) {
		tw.AppendRow(table.Row{
			stripSeparator(v.Name),
			stripSeparator(v.Address),
			fmt.Sprintf("%.2f%%", v.Probability*100),
			stripSeparator(v.PlaceID),
		})
	}
	_, err := io.WriteString(w, tw.RenderCSV()+"\n")
	return err
}
