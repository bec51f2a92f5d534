package layout

import "weekcal/internal/model"

// cluster is a set of fragments that overlap pairwise or transitively.
type cluster struct {
	frags []*model.Fragment
}

func (c *cluster) collidesWith(f *model.Fragment) bool {
	for _, g := range c.frags {
		if Collides(g, f) {
			return true
		}
	}
	return false
}

// column is one packing slot within a cluster.
type column struct {
	index int
	frags []*model.Fragment
}

func (c *column) fits(f *model.Fragment) bool {
	return len(c.frags) == 0 || !Collides(c.frags[len(c.frags)-1], f)
}

// Pack assigns column geometry to frags in place. All fragments are expected
// to be on the same day; callers group by day first.
func Pack(frags []*model.Fragment, cfg Config) {
	var timed, allDay []*model.Fragment
	for _, f := range frags {
		if f.IsAllDay() {
			allDay = append(allDay, f)
		} else {
			timed = append(timed, f)
		}
	}

	ResolveTouching(timed)
	ResolveTouching(allDay)

	clusters := multiColumnClusters(timed)
	if cfg.ArrangeAllDayVertically {
		clusters = append(clusters, singleColumnClusters(allDay)...)
	} else {
		clusters = append(clusters, multiColumnClusters(allDay)...)
	}

	for _, c := range clusters {
		packColumns(c)
	}

	for _, f := range timed {
		f.MinutesFromStart = cfg.MinutesFromStart(f.Start)
	}
}

func singleColumnClusters(frags []*model.Fragment) []*cluster {
	out := make([]*cluster, 0, len(frags))
	for _, f := range frags {
		out = append(out, &cluster{frags: []*model.Fragment{f}})
	}
	return out
}

// multiColumnClusters scans frags in order and adds each one to the first
// cluster it collides with, or starts a new cluster.
func multiColumnClusters(frags []*model.Fragment) []*cluster {
	var out []*cluster
	for _, f := range frags {
		var target *cluster
		for _, c := range out {
			if c.collidesWith(f) {
				target = c
				break
			}
		}
		if target == nil {
			out = append(out, &cluster{frags: []*model.Fragment{f}})
			continue
		}
		target.frags = append(target.frags, f)
	}
	return out
}

// packColumns places the cluster's fragments first-fit into columns. A
// fragment that fits a contiguous run of columns is placed in all of them
// and ends up spanning their combined width.
func packColumns(c *cluster) {
	columns := []*column{{index: 0}}

	for _, f := range c.frags {
		var fitting []*column
		for _, col := range columns {
			if col.fits(f) {
				fitting = append(fitting, col)
			}
		}

		switch {
		case len(fitting) == 0:
			columns = append(columns, &column{index: len(columns), frags: []*model.Fragment{f}})
		case len(fitting) == 1 || isContiguous(fitting):
			for _, col := range fitting {
				col.frags = append(col.frags, f)
			}
		default:
			// fitting is in index order, so the first one is the leftmost.
			fitting[0].frags = append(fitting[0].frags, f)
		}
	}

	assignGeometry(columns)
}

func isContiguous(cols []*column) bool {
	for i := 1; i < len(cols); i++ {
		if cols[i].index != cols[i-1].index+1 {
			return false
		}
	}
	return true
}

type columnSpan struct {
	first int
	last  int
}

// assignGeometry sets column, width and offset for every fragment. A
// fragment present in adjacent columns is widened by one column width per
// extra column it occupies.
func assignGeometry(columns []*column) {
	n := len(columns)
	width := 1 / float64(n)

	spans := make(map[*model.Fragment]*columnSpan)
	var order []*model.Fragment
	for _, col := range columns {
		for _, f := range col.frags {
			s, ok := spans[f]
			if !ok {
				spans[f] = &columnSpan{first: col.index, last: col.index}
				order = append(order, f)
				continue
			}
			if col.index == s.last+1 {
				s.last = col.index
			}
		}
	}

	for _, f := range order {
		s := spans[f]
		f.Column = s.first
		f.ColumnCount = n
		f.RelativeStart = float64(s.first) / float64(n)
		f.RelativeWidth = float64(s.last-s.first+1) * width
	}
}
