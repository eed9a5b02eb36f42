package convert

import (
	"maps"
	"slices"
	"sort"

	"github.com/maruel/natural"

	"hbc/utils/debug"
)

// String returns readable dump of pipeline outcome for debug report.
func (r *Result) String() string {
	if r == nil {
		return "<nil Result>"
	}
	tw := debug.NewTreeWriter()

	tw.Line(0, "Staging root: %s", r.StagingRoot)
	tw.Line(0, "Manifest: %d entries (%s)", len(r.Manifest), r.ManifestPath)
	for i, e := range r.Manifest {
		tw.Line(1, "Entry[%d]", i)
		tw.TextBlock(2, "title", e.Title)
		tw.TextBlock(2, "url", e.URL)
	}

	if len(r.Dropped) > 0 {
		tw.Line(0, "Dropped: %d", len(r.Dropped))
		for _, err := range r.Dropped {
			tw.Line(1, "%v", err)
		}
	}

	if len(r.Index) > 0 {
		keys := slices.Collect(maps.Keys(r.Index))
		sort.Sort(natural.StringSlice(keys))
		tw.Line(0, "Index pages: %d", len(keys))
		for _, k := range keys {
			tw.Line(1, "%s", k)
		}
	}

	if len(r.Stale) > 0 {
		tw.Line(0, "Stale files: %d", len(r.Stale))
		for _, n := range r.Stale {
			tw.Line(1, "%s", n)
		}
	}
	if len(r.Stylesheet) > 0 {
		tw.Line(0, "Stylesheet: %s", r.Stylesheet)
	}
	return tw.String()
}
