package result

import (
	"NYCU-SDC/survey-backend/internal/survey"
	"NYCU-SDC/survey-backend/internal/survey/response"
	"math"
	"sort"

	"github.com/google/uuid"
)

// ImageOnlyLabel names a choice that has an image but no text
const ImageOnlyLabel = "画像のみの選択肢"

type Row struct {
	ChoiceID   uuid.UUID
	Label      string
	ImageURL   string
	Count      int
	Percentage float64
}

type Cell struct {
	Count      int
	Percentage float64
}

// Segment is one attribute choice column of a cross tab; Cells follow the survey's choice order
type Segment struct {
	AttributeChoiceID uuid.UUID
	Label             string
	Total             int
	Cells             []Cell
}

type ChartBar struct {
	ChoiceID   uuid.UUID
	Label      string
	Count      int
	Percentage float64
}

// ChartGroup is a segment reduced to its non-zero bars
type ChartGroup struct {
	AttributeChoiceID uuid.UUID
	Label             string
	Bars              []ChartBar
}

// CrossTab is a choice by attribute-choice grid. Choices holds per-choice totals over the respondents
// who answered this setting, in survey order.
type CrossTab struct {
	SettingID   uuid.UUID
	Title       string
	Type        survey.AttributeType
	Choices     []Row
	Segments    []Segment
	ChartGroups []ChartGroup
}

type Result struct {
	Total     int
	Overall   []Row
	CrossTabs []CrossTab
}

// tallyIndex holds every count the tables need, built in one pass over the responses
type tallyIndex struct {
	total         int
	byChoice      map[uuid.UUID]int
	segmentTotals map[uuid.UUID]int
	bySegment     map[uuid.UUID]map[uuid.UUID]int
}

func newTallyIndex(responses []response.WithAttributes) tallyIndex {
	idx := tallyIndex{
		total:         len(responses),
		byChoice:      make(map[uuid.UUID]int),
		segmentTotals: make(map[uuid.UUID]int),
		bySegment:     make(map[uuid.UUID]map[uuid.UUID]int),
	}

	for _, r := range responses {
		choiceID := r.Response.ChoiceID
		idx.byChoice[choiceID]++

		for _, a := range r.Attributes {
			counts, ok := idx.bySegment[a.AttributeChoiceID]
			if !ok {
				counts = make(map[uuid.UUID]int)
				idx.bySegment[a.AttributeChoiceID] = counts
			}
			counts[choiceID]++
			idx.segmentTotals[a.AttributeChoiceID]++
		}
	}

	return idx
}

// Percentage is count over total as a percent rounded to one decimal; an empty total yields 0
func Percentage(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}

func Label(c survey.Choice) string {
	if c.Text.String == "" && c.ImageUrl.String != "" {
		return ImageOnlyLabel
	}
	return c.Text.String
}

// Overall counts responses per choice, most popular first; ties keep the survey's choice order
func Overall(choices []survey.Choice, responses []response.WithAttributes) []Row {
	return newTallyIndex(responses).overall(choices)
}

// SegmentTally cross-tabulates one attribute setting against the survey's choices
func SegmentTally(setting survey.AttributeDefinition, choices []survey.Choice, responses []response.WithAttributes) CrossTab {
	return newTallyIndex(responses).crossTab(setting, choices)
}

// Compute builds the overall tally and a cross tab for every attribute setting in the definition
func Compute(def survey.Definition, responses []response.WithAttributes) Result {
	idx := newTallyIndex(responses)

	crossTabs := make([]CrossTab, len(def.Attributes))
	for i, setting := range def.Attributes {
		crossTabs[i] = idx.crossTab(setting, def.Choices)
	}

	return Result{
		Total:     idx.total,
		Overall:   idx.overall(def.Choices),
		CrossTabs: crossTabs,
	}
}

func (idx tallyIndex) overall(choices []survey.Choice) []Row {
	rows := make([]Row, len(choices))
	for i, c := range choices {
		count := idx.byChoice[c.ID]
		rows[i] = Row{
			ChoiceID:   c.ID,
			Label:      Label(c),
			ImageURL:   c.ImageUrl.String,
			Count:      count,
			Percentage: Percentage(count, idx.total),
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Count > rows[j].Count
	})
	return rows
}

func (idx tallyIndex) crossTab(setting survey.AttributeDefinition, choices []survey.Choice) CrossTab {
	rows := make([]Row, len(choices))
	for i, c := range choices {
		rows[i] = Row{ChoiceID: c.ID, Label: Label(c), ImageURL: c.ImageUrl.String}
	}

	answered := 0
	segments := make([]Segment, len(setting.Choices))
	groups := make([]ChartGroup, 0, len(setting.Choices))
	for i, ac := range setting.Choices {
		total := idx.segmentTotals[ac.ID]
		counts := idx.bySegment[ac.ID]
		answered += total

		cells := make([]Cell, len(choices))
		var bars []ChartBar
		for j, c := range choices {
			count := counts[c.ID]
			cells[j] = Cell{Count: count, Percentage: Percentage(count, total)}
			rows[j].Count += count
			if count > 0 {
				bars = append(bars, ChartBar{
					ChoiceID:   c.ID,
					Label:      rows[j].Label,
					Count:      count,
					Percentage: cells[j].Percentage,
				})
			}
		}

		segments[i] = Segment{
			AttributeChoiceID: ac.ID,
			Label:             ac.Text,
			Total:             total,
			Cells:             cells,
		}
		if len(bars) > 0 {
			groups = append(groups, ChartGroup{AttributeChoiceID: ac.ID, Label: ac.Text, Bars: bars})
		}
	}

	for j := range rows {
		rows[j].Percentage = Percentage(rows[j].Count, answered)
	}

	return CrossTab{
		SettingID:   setting.Setting.ID,
		Title:       setting.Setting.Title,
		Type:        setting.Setting.Type,
		Choices:     rows,
		Segments:    segments,
		ChartGroups: groups,
	}
}
