package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/revdash/backend/internal/application/revenue"
	"github.com/revdash/backend/internal/domain/sales"
)

// topProducts is the number of product rows in the text report
const topProducts = 5

type report struct {
	View      revenue.View
	Connected []sales.ProviderType
	Currency  string
	Orders    []sales.Order
	Limit     int
	Now       time.Time
}

func renderText(w io.Writer, r report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	m := r.View.Metrics

	fmt.Fprintf(tw, "Updated\t%s\n", sales.LastUpdatedFormatted(r.View.LastUpdated, r.Now))
	if len(r.Connected) == 0 {
		fmt.Fprintln(tw, "Providers\tnone connected")
	}
	for _, p := range r.Connected {
		fmt.Fprintf(tw, "Provider\t%s\n", p.DisplayName())
	}
	if msg := sales.UserMessage(r.View.LastError); msg != "" {
		fmt.Fprintf(tw, "Error\t%s\n", msg)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "WINDOW\tREVENUE\tORDERS")
	fmt.Fprintf(tw, "Today\t%s\t%d\n", sales.FormatCents(m.TodayRevenue, r.Currency), m.TodayOrders)
	fmt.Fprintf(tw, "Last 30 days\t%s\t%d\n", sales.FormatCents(m.ThirtyDayRevenue, r.Currency), m.ThirtyDayOrders)
	fmt.Fprintf(tw, "This month\t%s\t%d\n", sales.FormatCents(m.MonthRevenue, r.Currency), m.MonthOrders)
	fmt.Fprintf(tw, "All time\t%s\t%d\n", sales.FormatCents(m.AllTimeRevenue, r.Currency), m.AllTimeOrders)

	if len(m.ProductBreakdown) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "PRODUCT\tREVENUE\tORDERS")
		for i, p := range m.ProductBreakdown {
			if i == topProducts {
				break
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\n", p.ProductName, sales.FormatCents(p.Revenue, r.Currency), p.OrderCount)
		}
	}

	if len(r.View.Stores) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "STORE\tPROVIDER\tTOTAL REVENUE")
		for _, st := range r.View.Stores {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", st.Name, st.Provider.DisplayName(), st.TotalRevenueFormatted())
		}
	}

	if r.Limit > 0 && len(r.Orders) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "DATE\tCUSTOMER\tPRODUCT\tTOTAL\tSTATUS")
		for i, o := range r.Orders {
			if i == r.Limit {
				break
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				o.CreatedAt.Format(time.DateOnly), o.CustomerName, o.ProductName, o.DisplayTotal(), o.Status)
		}
	}

	return tw.Flush()
}

type jsonView struct {
	sales.Snapshot
	LastError string `json:"last_error,omitempty"`
}

func renderJSON(w io.Writer, view revenue.View) error {
	out := jsonView{Snapshot: view.Snapshot}
	if view.LastError != nil {
		out.LastError = sales.UserMessage(view.LastError)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
