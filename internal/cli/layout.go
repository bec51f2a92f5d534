package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"weekcal/internal/calendar"
	"weekcal/internal/ics"
	appLog "weekcal/internal/log"
	"weekcal/internal/model"
)

type layoutOptions struct {
	date   string
	days   int
	format string
}

func newLayoutCmd(root *rootOptions) *cobra.Command {
	opts := &layoutOptions{}

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Fetch all sources once and print the packed week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.date, "date", "", "first day to show, YYYY-MM-DD (default: start of this week)")
	cmd.Flags().IntVar(&opts.days, "days", 0, "number of days to show (default: visible_days)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "output format: table or json")

	return cmd
}

func runLayout(cmd *cobra.Command, root *rootOptions, opts *layoutOptions) error {
	if opts.format != "table" && opts.format != "json" {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	ctx := cmd.Context()
	a, err := newApp(root)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	loc := a.cfg.Location()
	start := calendar.PreviousFirstDayOfWeek(calendar.DateOf(time.Now().In(loc)), a.cfg.FirstDayOfWeek())
	if opts.date != "" {
		if start, err = calendar.ParseDate(opts.date); err != nil {
			return fmt.Errorf("--date: %w", err)
		}
	}
	n := opts.days
	if n <= 0 {
		n = a.cfg.VisibleDays
	}
	minDate, maxDate := a.cfg.DateBounds()
	dates, err := calendar.FitRange(start, n, minDate, maxDate)
	if err != nil {
		return err
	}
	start = dates[0]

	items, err := a.resolver.Resolve(ctx, ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      start.In(loc),
		RangeEnd:        start.AddDays(n).In(loc),
	})
	if err != nil {
		if len(items) == 0 {
			return err
		}
		appLog.Error("some sources failed", err)
	}

	sub, err := a.processor.Submit(items, a.cfg.LayoutConfig(), nil)
	if err != nil {
		return err
	}
	if err := sub.Wait(ctx); err != nil {
		return err
	}

	days := make([]layoutDay, 0, len(dates))
	for _, d := range dates {
		q := a.processor.QueryByDay(d)
		day := layoutDay{Date: d.String(), Timed: toRows(q.Timed)}
		if a.cfg.ShowAllDay {
			day.AllDay = toRows(q.AllDay)
		}
		days = append(days, day)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(days)
	}
	renderTable(cmd.OutOrStdout(), days, loc)
	return nil
}

type layoutDay struct {
	Date   string      `json:"date"`
	Timed  []layoutRow `json:"timed"`
	AllDay []layoutRow `json:"all_day,omitempty"`
}

type layoutRow struct {
	ItemID        int64     `json:"item_id"`
	Title         string    `json:"title"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Column        int       `json:"column"`
	ColumnCount   int       `json:"column_count"`
	RelativeStart float64   `json:"relative_start"`
	RelativeWidth float64   `json:"relative_width"`
	Arrangement   string    `json:"arrangement"`
}

func toRows(frags []*model.Fragment) []layoutRow {
	rows := make([]layoutRow, 0, len(frags))
	for _, f := range frags {
		rows = append(rows, layoutRow{
			ItemID:        f.ItemID(),
			Title:         f.Item.Title,
			Start:         f.Start,
			End:           f.End,
			Column:        f.Column,
			ColumnCount:   f.ColumnCount,
			RelativeStart: f.RelativeStart,
			RelativeWidth: f.RelativeWidth,
			Arrangement:   f.Item.Arrangement.String(),
		})
	}
	return rows
}

var (
	colorDim    = lipgloss.Color("240")
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	allDayStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func renderTable(w io.Writer, days []layoutDay, loc *time.Location) {
	var rows [][]string
	var allDay []bool
	for _, d := range days {
		for _, r := range d.AllDay {
			rows = append(rows, []string{d.Date, "all day", r.Title, "", ""})
			allDay = append(allDay, true)
		}
		for _, r := range d.Timed {
			span := r.Start.In(loc).Format("15:04") + "-" + r.End.In(loc).Format("15:04")
			col := strconv.Itoa(r.Column+1) + "/" + strconv.Itoa(r.ColumnCount)
			width := strconv.FormatFloat(r.RelativeWidth, 'f', 2, 64)
			rows = append(rows, []string{d.Date, span, r.Title, col, width})
			allDay = append(allDay, false)
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Date", "Time", "Title", "Column", "Width").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row >= 0 && row < len(allDay) && allDay[row] {
				return allDayStyle
			}
			return lipgloss.NewStyle()
		})

	fmt.Fprintln(w, t.Render())
}
