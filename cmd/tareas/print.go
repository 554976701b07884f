package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/agalitsyn/tareas/internal/listing"
	"github.com/agalitsyn/tareas/internal/model"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	dimColor     = color.New(color.Faint)
	currentColor = color.New(color.FgYellow, color.Bold)
)

func statusColor(s model.Status) *color.Color {
	switch {
	case s.Equal(model.StatusFinished):
		return color.New(color.FgGreen)
	case s.Equal(model.StatusInProgress):
		return color.New(color.FgBlue)
	default:
		return color.New(color.FgRed)
	}
}

// printPage writes a listing page for the terminal.
func printPage(w io.Writer, flow listing.Flow, p listing.Page) {
	headerColor.Fprintf(w, "Tareas %s (%d)\n", flow.Name, p.Total)
	if p.SearchTerm != "" {
		dimColor.Fprintf(w, "búsqueda: %s\n", p.SearchTerm)
	}
	fmt.Fprintln(w)

	if len(p.Items) == 0 {
		dimColor.Fprintln(w, "  no hay tareas")
	}
	for _, t := range p.Items {
		fmt.Fprintf(w, "  %4d  %s  %-12s  %s  ", t.ID, t.DueDate.Format(model.DateLayout),
			statusColor(t.Status).Sprint(t.Status), t.Name)
		dimColor.Fprintf(w, "usuario %d\n", t.OwnerID)
	}

	fmt.Fprintln(w)
	if p.HasPrevPage {
		fmt.Fprint(w, "« ")
	}
	for _, n := range p.Window() {
		if n == p.CurrentPage {
			currentColor.Fprintf(w, "[%d] ", n)
			continue
		}
		fmt.Fprintf(w, "%d ", n)
	}
	if p.HasNextPage {
		fmt.Fprint(w, "»")
	}
	fmt.Fprintf(w, "\npágina %d de %d\n", p.CurrentPage, p.TotalPages)
}
