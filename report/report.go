// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/dv-appraisal/valuation"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(FuncMap()).ParseFS(templateFS, "templates/*.html"))

// Party identifies the vehicle owner on the documents
type Party struct {
	Name  string
	Email string
}

// Data is everything the report and the demand letter print
type Data struct {
	AppraisalID string
	GeneratedAt time.Time
	Owner       Party
	Vehicle     valuation.VehicleProfile
	Valuation   valuation.FullValuation
	InsurerName string
	ClaimNumber string
	ShareURL    string
}

// Money formats whole dollars with thousands separators, e.g. $12,345
func Money(v float64) string {
	n := int64(math.Round(v))
	if n < 0 {
		return "-$" + humanize.Comma(-n)
	}
	return "$" + humanize.Comma(n)
}

func Miles(n int) string {
	return humanize.Comma(int64(n))
}

func Date(t time.Time) string {
	return t.Format("January 2, 2006")
}

// Percent renders a 0..1 ratio with one decimal, e.g. 0.125 -> 12.5%
func Percent(ratio float64) string {
	return strconv.FormatFloat(ratio*100, 'f', 1, 64) + "%"
}

// FuncMap backs the HTML templates. Money is also the chat reply formatter in negotiation.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"money":   Money,
		"miles":   Miles,
		"percent": Percent,
		"date": func(v any) string {
			switch t := v.(type) {
			case time.Time:
				return Date(t)
			case *time.Time:
				if t == nil {
					return ""
				}
				return Date(*t)
			}
			return ""
		},
		"yesno": func(b bool) string {
			if b {
				return "Yes"
			}
			return "No"
		},
	}
}

func render(name string, d Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, d); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// RenderReportHTML renders the full appraisal report
func RenderReportHTML(d Data) ([]byte, error) {
	return render("report.html", d)
}

// RenderDemandLetterHTML renders the letter to the at-fault insurer
func RenderDemandLetterHTML(d Data) ([]byte, error) {
	return render("demand_letter.html", d)
}
