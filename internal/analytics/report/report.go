package report

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/brightclass/insight/internal/analytics/domain"
)

// Generator renders dashboard snapshots as PDF documents.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// DashboardPDF renders the platform branch of a dashboard response.
func (g *Generator) DashboardPDF(_ context.Context, resp domain.DashboardResponse) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(12, "Analytics Dashboard", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(15,
		col.New(12).Add(
			text.New("Period: "+resp.TimeRange.Start+" to "+resp.TimeRange.End, props.Text{Top: 0}),
			text.New(fmt.Sprintf("Tenants reported: %d", len(resp.Tenants)), props.Text{Top: 5}),
		),
	)

	addSection(m, "Active Users", [][]domain.SeriesPoint{
		resp.Platform.ActiveUsers.Daily,
		resp.Platform.ActiveUsers.Weekly,
		resp.Platform.ActiveUsers.Monthly,
	}, []string{"Daily", "Weekly", "Monthly"})

	addSection(m, "Content", [][]domain.SeriesPoint{
		resp.Platform.Content.Views,
		resp.Platform.Content.Completions,
		resp.Platform.Content.AvgTimeSpent,
	}, []string{"Views", "Completions", "Avg time spent"})

	addSection(m, "Learning", [][]domain.SeriesPoint{
		resp.Platform.Learning.AssignmentsCompleted,
		resp.Platform.Learning.QuizzesCompleted,
		resp.Platform.Learning.AvgQuizScore,
	}, []string{"Assignments completed", "Quizzes completed", "Avg quiz score"})

	addSection(m, "Errors", [][]domain.SeriesPoint{
		resp.Platform.Errors.Count,
		resp.Platform.Errors.Rate,
	}, []string{"Count", "Rate"})

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

func addSection(m core.Maroto, title string, series [][]domain.SeriesPoint, labels []string) {
	m.AddRow(12,
		text.NewCol(12, title, props.Text{Size: 14, Style: fontstyle.Bold, Top: 2}),
	)
	m.AddRow(8,
		text.NewCol(6, "Metric", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Latest", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(3, "Total", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for i, points := range series {
		latest := 0.0
		total := 0.0
		for _, point := range points {
			latest = point.Value
			total += point.Value
		}
		m.AddRow(8,
			text.NewCol(6, labels[i], props.Text{Size: 9}),
			text.NewCol(3, fmt.Sprintf("%.2f", latest), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(3, fmt.Sprintf("%.2f", total), props.Text{Size: 9, Align: align.Right}),
		)
	}
}
