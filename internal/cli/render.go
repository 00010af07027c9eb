package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/zanzhit/flameguard/internal/backend"
	"github.com/zanzhit/flameguard/internal/domain/constants"
	"github.com/zanzhit/flameguard/internal/domain/models"
	"github.com/zanzhit/flameguard/internal/lib/format"
)

type fireRow struct {
	ID             int64   `json:"id"`
	Timestamp      string  `json:"timestamp"`
	Time           string  `json:"time"`
	Confidence     float64 `json:"confidence"`
	ConfidenceText string  `json:"confidence_text"`
	ImageURL       string  `json:"image_url"`
}

type videoRow struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	Time      string `json:"time"`
	VideoURL  string `json:"video_url"`
	LogURL    string `json:"log_url"`
}

// renderer writes command results either as styled text or as one JSON value
// per line.
type renderer struct {
	w    io.Writer
	json bool

	success lipgloss.Style
	info    lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
	header  lipgloss.Style
	id      lipgloss.Style
	cell    lipgloss.Style
	hot     lipgloss.Style
}

func newTextRenderer(w io.Writer) *renderer {
	lr := lipgloss.NewRenderer(w)

	return &renderer{
		w:       w,
		success: lr.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		info:    lr.NewStyle().Foreground(lipgloss.Color("39")),
		failure: lr.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		muted:   lr.NewStyle().Foreground(lipgloss.Color("245")),
		header:  lr.NewStyle().Bold(true).Underline(true),
		id:      lr.NewStyle().Width(6),
		cell:    lr.NewStyle().Width(26),
		hot:     lr.NewStyle().Foreground(lipgloss.Color("196")).Width(12),
	}
}

func newJSONRenderer(w io.Writer) *renderer {
	return &renderer{w: w, json: true}
}

func (r *renderer) encode(v any) error {
	return json.NewEncoder(r.w).Encode(v)
}

// Notification prints n. Empty notifications print nothing.
func (r *renderer) Notification(n models.Notification) error {
	if n.Title == "" {
		return nil
	}

	if r.json {
		return r.encode(n)
	}

	var line string
	switch n.Level {
	case models.LevelSuccess:
		line = r.success.Render("✓ " + n.Title)
	case models.LevelError:
		line = r.failure.Render("✗ " + n.Title)
	default:
		line = r.info.Render("• " + n.Title)
	}

	if n.Description != "" {
		line += " " + r.muted.Render(n.Description)
	}

	_, err := fmt.Fprintln(r.w, line)
	return err
}

// Value prints a labelled value, or {"<label>": value} in JSON mode.
func (r *renderer) Value(label, value string) error {
	if r.json {
		return r.encode(map[string]string{label: value})
	}

	_, err := fmt.Fprintln(r.w, value)
	return err
}

func (r *renderer) Webcam(st models.WebcamState) error {
	if r.json {
		return r.encode(st)
	}

	status := r.muted.Render("Inactive")
	if st.Running {
		status = r.success.Render("Active")
	}

	_, err := fmt.Fprintf(r.w, "Webcam: %s\n", status)
	return err
}

func (r *renderer) FireLogs(logs []models.FireLog, links *backend.Links) error {
	rows := make([]fireRow, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, fireRow{
			ID:             l.ID,
			Timestamp:      l.Timestamp,
			Time:           format.Timestamp(l.Timestamp),
			Confidence:     l.Confidence,
			ConfidenceText: format.Confidence(l.Confidence),
			ImageURL:       links.Image(l.ImagePath),
		})
	}

	if r.json {
		return r.encode(rows)
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(r.w, r.muted.Render("No fire detections recorded"))
		return err
	}

	fmt.Fprintln(r.w, r.header.Render(fmt.Sprintf("%-6s%-26s%-12s%s", "ID", "TIME", "CONFIDENCE", "IMAGE")))
	for _, row := range rows {
		conf := r.cell.Width(12).Render(row.ConfidenceText)
		if row.Confidence >= constants.AlertConfidence {
			conf = r.hot.Render(row.ConfidenceText)
		}

		if _, err := fmt.Fprintln(r.w, r.id.Render(fmt.Sprint(row.ID))+r.cell.Render(row.Time)+conf+row.ImageURL); err != nil {
			return err
		}
	}

	return nil
}

func (r *renderer) VideoLogs(logs []models.VideoLog, links *backend.Links) error {
	rows := make([]videoRow, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, videoRow{
			ID:        l.ID,
			Timestamp: l.Timestamp,
			Time:      format.Timestamp(l.Timestamp),
			VideoURL:  links.PastVideo(l.VideoPath),
			LogURL:    links.PastLog(l.CSVPath),
		})
	}

	if r.json {
		return r.encode(rows)
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(r.w, r.muted.Render("No processed videos recorded"))
		return err
	}

	fmt.Fprintln(r.w, r.header.Render(fmt.Sprintf("%-6s%-26s%s", "ID", "TIME", "ARTIFACTS")))
	for _, row := range rows {
		line := r.id.Render(fmt.Sprint(row.ID)) + r.cell.Render(row.Time) + row.VideoURL
		if _, err := fmt.Fprintln(r.w, line); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(r.w, r.id.Render("")+r.cell.Render("")+r.muted.Render(row.LogURL)); err != nil {
			return err
		}
	}

	return nil
}
