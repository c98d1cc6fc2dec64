package debugui

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/kamstrup/intmap"
	"github.com/plus3/slots/idmap"
)

// SlotInfo is one row of the slot browser.
type SlotInfo struct {
	Index      int
	Handle     idmap.Handle
	Generation uint64
	Free       bool
	Summary    string
}

const (
	defaultSummaryTTL = 30
	maxSummaryLen     = 64
)

// SlotBrowser lists every slot of a map with its handle, generation and a
// short value summary. Summaries are cached per handle for SummaryTTL
// refreshes, so values changed in place show up after at most that many
// frames, or at once after Invalidate.
type SlotBrowser[V any, I idmap.Index, C idmap.Counter] struct {
	// OnErase is called by the Erase button instead of erasing from the map
	// directly, for maps whose removals must go through their owner.
	OnErase func(idmap.Handle)
	// SummaryTTL is the number of refreshes a cached summary is reused for.
	// Zero formats every live value on every refresh.
	SummaryTTL int

	title          string
	m              *idmap.Map[V, I, C]
	rows           []SlotInfo
	summaries      *intmap.Map[idmap.Handle, cachedSummary]
	frame          uint64
	sortColumn     int
	sortAscending  bool
	filterText     string
	showFree       bool
	selected       idmap.Handle
	maxRowsPerPage int
	currentPage    int
}

type cachedSummary struct {
	text  string
	frame uint64
}

// NewSlotBrowser creates a browser window titled title for m.
func NewSlotBrowser[V any, I idmap.Index, C idmap.Counter](title string, m *idmap.Map[V, I, C], maxRowsPerPage int) *SlotBrowser[V, I, C] {
	return &SlotBrowser[V, I, C]{
		SummaryTTL:     defaultSummaryTTL,
		title:          title,
		m:              m,
		summaries:      intmap.New[idmap.Handle, cachedSummary](256),
		sortAscending:  true,
		maxRowsPerPage: max(maxRowsPerPage, 1),
	}
}

func (sb *SlotBrowser[V, I, C]) Render() {
	if !imgui.BeginV(sb.title, nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	sb.Refresh()

	if imgui.InputTextWithHint("##search", "Search...", &sb.filterText, imgui.InputTextFlagsNone, nil) {
		sb.currentPage = 0
	}
	imgui.SameLine()
	if imgui.Checkbox("Show free", &sb.showFree) {
		sb.currentPage = 0
	}
	imgui.SameLine()
	if imgui.Button("Clear Filter") {
		sb.filterText = ""
		sb.currentPage = 0
	}
	imgui.SameLine()
	if imgui.Button("Reload Values") {
		sb.Invalidate()
	}

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("SlotTable", 4, tableFlags, imgui.NewVec2(0, 300), 0) {
		imgui.TableSetupColumn("Index")
		imgui.TableSetupColumn("Handle")
		imgui.TableSetupColumn("Generation")
		imgui.TableSetupColumn("Value")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			sb.sortColumn = int(spec.ColumnIndex())
			sb.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			sortSlots(sb.rows, sb.sortColumn, sb.sortAscending)
			sortSpecs.SetSpecsDirty(false)
		}

		filtered := filterSlots(sb.rows, sb.filterText, sb.showFree)
		var startIdx, endIdx int
		startIdx, endIdx, sb.currentPage, _ = pageRange(len(filtered), sb.maxRowsPerPage, sb.currentPage)

		for i := startIdx; i < endIdx; i++ {
			row := filtered[i]
			imgui.TableNextRow()

			imgui.TableNextColumn()
			isSelected := sb.selected == row.Handle && !row.Free
			if imgui.SelectableBoolV(fmt.Sprintf("%d", row.Index), isSelected, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) && !row.Free {
				sb.selected = row.Handle
			}

			imgui.TableNextColumn()
			if row.Free {
				imgui.Text("free")
			} else {
				imgui.Text(fmt.Sprintf("%#x", uint64(row.Handle)))
			}

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", row.Generation))

			imgui.TableNextColumn()
			imgui.Text(row.Summary)
		}

		imgui.EndTable()
	}

	filtered := filterSlots(sb.rows, sb.filterText, sb.showFree)
	if len(filtered) > sb.maxRowsPerPage {
		_, _, _, totalPages := pageRange(len(filtered), sb.maxRowsPerPage, sb.currentPage)
		imgui.Text(fmt.Sprintf("Page %d / %d (%d slots)", sb.currentPage+1, totalPages, len(filtered)))
		imgui.SameLine()
		if imgui.Button("Prev") && sb.currentPage > 0 {
			sb.currentPage--
		}
		imgui.SameLine()
		if imgui.Button("Next") && sb.currentPage < totalPages-1 {
			sb.currentPage++
		}
	} else {
		imgui.Text(fmt.Sprintf("Total: %d slots", len(filtered)))
	}

	imgui.Separator()
	if sb.m.Validate(sb.selected) {
		imgui.Text(fmt.Sprintf("Selected %s", sb.selected))
		imgui.Text(fmt.Sprintf("%+v", *sb.m.Get(sb.selected)))
		if imgui.Button("Erase") {
			sb.Erase(sb.selected)
		}
	} else {
		imgui.Text("No slot selected")
	}

	if imgui.TreeNodeStr("Free queue") {
		for index := range sb.m.FreeIndices() {
			imgui.BulletText(fmt.Sprintf("%d", index))
		}
		imgui.TreePop()
	}

	imgui.End()
}

// Refresh rebuilds the rows from the current map contents.
func (sb *SlotBrowser[V, I, C]) Refresh() {
	sb.rebuild()
}

// Invalidate drops every cached summary.
func (sb *SlotBrowser[V, I, C]) Invalidate() {
	sb.summaries.Clear()
}

// Erase removes h through OnErase, or from the map if OnErase is nil, and
// clears the selection if it pointed at h.
func (sb *SlotBrowser[V, I, C]) Erase(h idmap.Handle) {
	if sb.OnErase != nil {
		sb.OnErase(h)
	} else {
		sb.m.Erase(h)
	}
	if sb.selected == h {
		sb.selected = idmap.Nil
	}
}

// Rows returns the cached rows in the current sort order.
func (sb *SlotBrowser[V, I, C]) Rows() []SlotInfo {
	return sb.rows
}

// Selected returns the handle picked in the table, or idmap.Nil.
func (sb *SlotBrowser[V, I, C]) Selected() idmap.Handle {
	return sb.selected
}

func (sb *SlotBrowser[V, I, C]) rebuild() {
	sb.rows = sb.rows[:0]
	sb.frame++
	next := intmap.New[idmap.Handle, cachedSummary](max(sb.m.Len(), 16))

	for i := 0; i < sb.m.Cap(); i++ {
		index := I(i)
		h := sb.m.HandleForIndex(index)
		gen, _ := idmap.DecodeGeneration[I, C](h)
		row := SlotInfo{
			Index:      i,
			Handle:     h,
			Generation: uint64(gen) & uint64(idmap.GenerationSpace[C]()),
			Free:       sb.m.IndexIsFree(index),
		}

		if !row.Free {
			cached, ok := sb.summaries.Get(h)
			if !ok || sb.frame-cached.frame >= uint64(sb.SummaryTTL) {
				cached = cachedSummary{text: summarize(*sb.m.GetByIndex(index)), frame: sb.frame}
			}
			next.Put(h, cached)
			row.Summary = cached.text
		}
		sb.rows = append(sb.rows, row)
	}

	sb.summaries = next
	sortSlots(sb.rows, sb.sortColumn, sb.sortAscending)
}

// summarize formats v and cuts it to maxSummaryLen bytes on a rune boundary.
func summarize(v any) string {
	s := fmt.Sprintf("%+v", v)
	if len(s) <= maxSummaryLen {
		return s
	}

	cut := 0
	for cut < len(s) {
		_, size := utf8.DecodeRuneInString(s[cut:])
		if cut+size > maxSummaryLen-3 {
			break
		}
		cut += size
	}
	return s[:cut] + "..."
}

// pageRange returns the bounds of page within n rows split into pages of
// perPage, clamping page into the valid range.
func pageRange(n, perPage, page int) (start, end, clamped, pages int) {
	pages = max((n+perPage-1)/perPage, 1)
	clamped = min(max(page, 0), pages-1)
	start = clamped * perPage
	end = min(start+perPage, n)
	return start, end, clamped, pages
}

func sortSlots(rows []SlotInfo, column int, ascending bool) {
	less := func(a, b SlotInfo) bool {
		switch column {
		case 1:
			return a.Handle < b.Handle
		case 2:
			return a.Generation < b.Generation
		case 3:
			return a.Summary < b.Summary
		default:
			return a.Index < b.Index
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !ascending {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

func filterSlots(rows []SlotInfo, filterText string, showFree bool) []SlotInfo {
	if filterText == "" && showFree {
		return rows
	}

	filtered := make([]SlotInfo, 0, len(rows))
	filterLower := strings.ToLower(filterText)

	for _, row := range rows {
		if row.Free && !showFree {
			continue
		}

		if filterText != "" {
			idxStr := fmt.Sprintf("%d", row.Index)
			handleStr := fmt.Sprintf("%#x", uint64(row.Handle))
			if !strings.Contains(idxStr, filterLower) &&
				!strings.Contains(handleStr, filterLower) &&
				!strings.Contains(strings.ToLower(row.Summary), filterLower) {
				continue
			}
		}

		filtered = append(filtered, row)
	}

	return filtered
}
