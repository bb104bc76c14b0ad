// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package report renders the customer-facing documents of an appraisal.

There are two documents, both embedded html/template files:

  - report.html: the appraisal report. Headline amount and range, vehicle
    and accident details, damage areas, the pre-accident value sources with
    their weights, the comparable listings and every step of the
    diminished value calculation.
  - demand_letter.html: a letter addressed to the at-fault insurer demanding
    the appraised amount, with claim number and date of loss.

Both take a Data value. Money is printed in whole dollars with thousands
separators through go-humanize, mileage with separators, dates as
"January 2, 2006". FuncMap exposes the same helpers to other packages.

# PDF

Renderer converts HTML to PDF. RodRenderer drives headless Chromium with
go-rod: it launches (or attaches to) one browser on first use, opens an
incognito page per document, loads the HTML with SetDocumentContent and
prints it with CSS page sizes and backgrounds. When PDF output is switched
off the server uses DisabledRenderer, which returns ErrPDFDisabled, and the
PDF and email endpoints answer 503.
*/
package report
