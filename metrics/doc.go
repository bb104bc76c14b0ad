// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package metrics exposes the Prometheus collectors for the appraisal server.

All collectors live in the default registry under the "dvappraisal" namespace
and are registered once at package init through promauto. Callers never touch
the collectors directly; they use the small Observe and Inc helpers so label
sets stay consistent.

# Collectors

  - dvappraisal_http_requests_total{method,route,status}
  - dvappraisal_http_request_duration_seconds{method,route}
  - dvappraisal_http_rate_limited_total
  - dvappraisal_external_calls_total{api,outcome}
  - dvappraisal_external_call_duration_seconds{api}
  - dvappraisal_valuation_computed_total{kind,source}
  - dvappraisal_valuation_dv_amount_dollars
  - dvappraisal_report_rendered_total{document,format}
  - dvappraisal_mail_sent_total{outcome}

The route label is the ServeMux pattern that matched (for example
"GET /appraisals/{id}"), so appraisal IDs never become label values.

Handler returns the scrape endpoint mounted at GET /metrics.
*/
package metrics
