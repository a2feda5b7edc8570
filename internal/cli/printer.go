// Package cli renders history for the terminal.
package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/tidwall/pretty"

	"github.com/MrSnakeDoc/relay/internal/domain"
	"github.com/MrSnakeDoc/relay/internal/history"
)

// maxURLWidth truncates long URLs in list rows.
const maxURLWidth = 60

// Printer writes human-readable history views.
type Printer struct {
	out     io.Writer
	colored bool
	now     func() time.Time

	header *color.Color
	dim    *color.Color
	ok     *color.Color
	redir  *color.Color
	warn   *color.Color
	fail   *color.Color
}

// NewPrinter writes to out. colored=false strips every escape sequence.
func NewPrinter(out io.Writer, colored bool) *Printer {
	p := &Printer{
		out:     out,
		colored: colored,
		now:     time.Now,
		header:  color.New(color.FgYellow, color.Bold),
		dim:     color.New(color.Faint),
		ok:      color.New(color.FgGreen),
		redir:   color.New(color.FgCyan),
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{p.header, p.dim, p.ok, p.redir, p.warn, p.fail} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Page prints one page of summaries as a table.
func (p *Printer) Page(page domain.Page) {
	pages := domain.PageCount(page.Total, page.PageSize)
	p.header.Fprintf(p.out, "History: page %d of %d (%s records)\n", page.Page, max(pages, 1), humanize.Comma(page.Total))

	if len(page.Records) == 0 {
		p.dim.Fprintln(p.out, "  no records on this page")
		return
	}

	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tMETHOD\tURL\tWHEN")
	for _, r := range page.Records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			r.ID,
			p.status(r.StatusCode),
			r.Method,
			truncate(r.URL, maxURLWidth),
			humanize.RelTime(r.Timestamp, p.now(), "ago", "from now"),
		)
	}
	_ = w.Flush()
}

// Detail prints one full record, JSON bodies pretty-printed.
func (p *Printer) Detail(d history.Detail) {
	p.header.Fprintf(p.out, "Request #%d\n", d.ID)

	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Method\t%s\n", d.Method)
	fmt.Fprintf(w, "  URL\t%s\n", d.URL)
	fmt.Fprintf(w, "  Status\t%s\n", p.status(d.StatusCode))
	fmt.Fprintf(w, "  When\t%s (%s)\n", d.Timestamp.UTC().Format(time.RFC3339Nano), humanize.Time(d.Timestamp))
	_ = w.Flush()

	p.section("Request headers")
	p.headers(d.RequestHeaders)
	p.section(fmt.Sprintf("Request body (%s)", humanize.IBytes(uint64(len(d.RequestBody)))))
	p.body(domain.ParseBody(d.RequestBody))

	p.section("Response headers")
	p.headers(d.ResponseHeaders)
	p.section(fmt.Sprintf("Response body (%s, %s)", humanize.IBytes(uint64(len(d.ResponseBody))), d.ResponseBodyParsed.Kind()))
	p.body(d.ResponseBodyParsed)
}

// Deleted confirms a delete.
func (p *Printer) Deleted(id int64) {
	p.ok.Fprintf(p.out, "Request #%d deleted\n", id)
}

func (p *Printer) section(title string) {
	fmt.Fprintln(p.out)
	p.header.Fprintln(p.out, title)
}

func (p *Printer) headers(h map[string]string) {
	if len(h) == 0 {
		p.dim.Fprintln(p.out, "  (none)")
		return
	}
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(p.out, 0, 0, 1, ' ', 0)
	for _, k := range names {
		fmt.Fprintf(w, "  %s:\t%s\n", k, h[k])
	}
	_ = w.Flush()
}

func (p *Printer) body(b domain.Body) {
	if v, ok := b.Structured(); ok {
		out := pretty.Pretty(v)
		if p.colored {
			out = pretty.Color(out, nil)
		}
		_, _ = p.out.Write(out)
		return
	}
	raw, _ := b.Raw()
	if raw == "" {
		p.dim.Fprintln(p.out, "  (empty)")
		return
	}
	fmt.Fprintln(p.out, raw)
}

// status colors a status code; 0 reads as a network error.
func (p *Printer) status(code int) string {
	switch {
	case code == domain.NetworkFailureStatus:
		return p.fail.Sprint("ERR")
	case code >= 500:
		return p.fail.Sprint(code)
	case code >= 400:
		return p.warn.Sprint(code)
	case code >= 300:
		return p.redir.Sprint(code)
	default:
		return p.ok.Sprint(code)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// JSON indents a document for --json output.
func JSON(v []byte) []byte {
	return pretty.PrettyOptions(v, &pretty.Options{Width: 80, Indent: "  "})
}
