package view

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
)

// Columns is the fixed export column set.
var Columns = []string{
	"Title",
	"Address",
	"Phone",
	"Website",
	"Email",
	"Rating",
	"Reviews",
	"Type",
	"Open State",
	"Facebook",
	"Instagram",
	"Twitter",
	"LinkedIn",
	"Opportunity Score",
	"Opportunity Factors",
}

// FactorSeparator joins opportunity factors into one cell.
const FactorSeparator = "; "

// Row flattens b into Columns order. Absent numbers are empty cells.
func Row(b model.Business) []string {
	rating := ""
	if b.Rating > 0 {
		rating = strconv.FormatFloat(b.Rating, 'f', 1, 64)
	}
	reviews := ""
	if b.Reviews > 0 {
		reviews = strconv.Itoa(b.Reviews)
	}
	return []string{
		b.Title,
		b.Address,
		b.Phone,
		b.Website,
		b.Email,
		rating,
		reviews,
		b.Type,
		b.OpenState,
		b.Socials.Facebook,
		b.Socials.Instagram,
		b.Socials.Twitter,
		b.Socials.LinkedIn,
		strconv.Itoa(b.OpportunityScore),
		strings.Join(b.OpportunityFactors, FactorSeparator),
	}
}

// WriteCSV writes a header row and one row per business.
func WriteCSV(w io.Writer, list []model.Business) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return eris.Wrap(err, "view: write csv header")
	}
	for _, b := range list {
		if err := cw.Write(Row(b)); err != nil {
			return eris.Wrapf(err, "view: write csv row %q", b.Title)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "view: flush csv")
	}
	return nil
}

// WriteXLSX writes the same table as WriteCSV as a single-sheet workbook.
func WriteXLSX(w io.Writer, list []model.Business) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "view: add sheet")
	}

	addRow(sheet, Columns)
	for _, b := range list {
		row := sheet.AddRow()
		for i, v := range Row(b) {
			cell := row.AddCell()
			switch Columns[i] {
			case "Rating":
				if b.Rating > 0 {
					cell.SetFloat(b.Rating)
					continue
				}
			case "Reviews":
				if b.Reviews > 0 {
					cell.SetInt(b.Reviews)
					continue
				}
			case "Opportunity Score":
				cell.SetInt(b.OpportunityScore)
				continue
			}
			cell.SetString(v)
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "view: write xlsx")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// WriteJSON writes the list as an indented JSON array.
func WriteJSON(w io.Writer, list []model.Business) error {
	if list == nil {
		list = []model.Business{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(list); err != nil {
		return eris.Wrap(err, "view: write json")
	}
	return nil
}
