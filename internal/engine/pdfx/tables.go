package pdfx

// StreamTable is a run of consecutive multi-cell rows.
type StreamTable struct {
	Rows     [][]string
	Accuracy float64
}

const minTableRows = 2

// DetectStreamTables finds whitespace-aligned tables: runs of at least two
// consecutive rows with two or more cells whose cell counts stay within one of
// the run's first row. Accuracy is the share of rows matching the modal width.
func DetectStreamTables(rows []Row) []StreamTable {
	var out []StreamTable
	var run []Row
	flush := func() {
		if len(run) >= minTableRows {
			out = append(out, buildStreamTable(run))
		}
		run = nil
	}
	for _, r := range rows {
		n := len(r.Cells)
		if n < 2 {
			flush()
			continue
		}
		if len(run) > 0 {
			first := len(run[0].Cells)
			if n < first-1 || n > first+1 {
				flush()
			}
		}
		run = append(run, r)
	}
	flush()
	return out
}

func buildStreamTable(run []Row) StreamTable {
	counts := map[int]int{}
	modal, modalCount := 0, 0
	for _, r := range run {
		n := len(r.Cells)
		counts[n]++
		if counts[n] > modalCount || (counts[n] == modalCount && n > modal) {
			modal, modalCount = n, counts[n]
		}
	}
	rows := make([][]string, 0, len(run))
	for _, r := range run {
		cells := make([]string, modal)
		for i, c := range r.Cells {
			if i >= modal {
				cells[modal-1] += " " + c.Text
				continue
			}
			cells[i] = c.Text
		}
		rows = append(rows, cells)
	}
	return StreamTable{
		Rows:     rows,
		Accuracy: float64(modalCount) / float64(len(run)) * 100,
	}
}
