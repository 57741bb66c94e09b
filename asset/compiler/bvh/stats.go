package bvh

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Stats summarizes a built tree.
type Stats struct {
	Nodes           int
	InnerNodes      int
	Leaves          int
	Primitives      int
	UnalignedNodes  int
	UnalignedLeaves int
	Depth           int
	SAHCost         float32

	// Build counters; zero when the stats were collected from a tree alone.
	References int
	Duplicates int
	BuildTime  time.Duration
}

// Collect tree statistics.
func CollectStats(root Node, p Params) Stats {
	return Stats{
		Nodes:           SubtreeSize(root, StatNodeCount),
		InnerNodes:      SubtreeSize(root, StatInnerCount),
		Leaves:          SubtreeSize(root, StatLeafCount),
		Primitives:      SubtreeSize(root, StatPrimitiveCount),
		UnalignedNodes:  SubtreeSize(root, StatUnalignedInnerCount),
		UnalignedLeaves: SubtreeSize(root, StatUnalignedLeafCount),
		Depth:           SubtreeSize(root, StatDepth),
		SAHCost:         SubtreeSAHCost(root, p, 1),
	}
}

// Render the stats as a table.
func (s Stats) Table() string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Statistic", "Value"})
	table.Append([]string{"Nodes", fmt.Sprint(s.Nodes)})
	table.Append([]string{"Inner nodes", fmt.Sprint(s.InnerNodes)})
	table.Append([]string{"Leaves", fmt.Sprint(s.Leaves)})
	table.Append([]string{"Unaligned inner nodes", fmt.Sprint(s.UnalignedNodes)})
	table.Append([]string{"Unaligned leaves", fmt.Sprint(s.UnalignedLeaves)})
	table.Append([]string{"Depth", fmt.Sprint(s.Depth)})
	table.Append([]string{"Primitive slots", fmt.Sprint(s.Primitives)})
	table.Append([]string{"References", fmt.Sprint(s.References)})
	table.Append([]string{"Spatial duplicates", fmt.Sprint(s.Duplicates)})
	table.Append([]string{"SAH cost", fmt.Sprintf("%.3f", s.SAHCost)})
	table.SetFooter([]string{"Build time", fmt.Sprintf("%d ms", s.BuildTime.Nanoseconds()/1e6)})
	table.Render()

	return buf.String()
}
