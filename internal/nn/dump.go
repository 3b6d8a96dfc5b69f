package nn

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/born-ml/paramtree/internal/tensor"
)

// NamedTensor pairs a full dotted path with the tensor currently stored there.
type NamedTensor struct {
	Path   string
	Kind   Kind
	Tensor *tensor.RawTensor
}

// DumpParameters lists every tensor of the tree rooted at c in walk order
// (a module's parameters, then buffers, then children, in registration order).
// It has no side effects.
func DumpParameters(c Component) ([]NamedTensor, error) {
	slots, err := NamedSlots(c)
	if err != nil {
		return nil, err
	}

	out := make([]NamedTensor, len(slots))
	for i, ns := range slots {
		out[i] = NamedTensor{Path: ns.Path, Kind: ns.Slot.Kind(), Tensor: ns.Slot.Tensor()}
	}
	return out, nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

// PrintParameters writes a table of every tensor in the tree rooted at c,
// followed by a total element count.
func PrintParameters(w io.Writer, c Component) error {
	tensors, err := DumpParameters(c)
	if err != nil {
		return err
	}

	table := newTable(w, "PATH", "KIND", "DTYPE", "SHAPE", "DEVICE")
	var total int
	data := make([][]string, 0, len(tensors))
	for _, nt := range tensors {
		data = append(data, []string{
			nt.Path,
			nt.Kind.String(),
			nt.Tensor.DType().String(),
			nt.Tensor.Shape().String(),
			nt.Tensor.Device().String(),
		})
		total += nt.Tensor.NumElements()
	}
	table.AppendBulk(data)
	table.Render()

	_, err = fmt.Fprintf(w, "\n%d tensors, %d elements\n", len(tensors), total)
	return err
}

// PrintReport writes the outcome of a merge: one row per rejected or missing
// key, then a summary line.
func PrintReport(w io.Writer, r *UpdateReport) error {
	table := newTable(w, "STATUS", "NAME", "EXPECTED", "GOT")
	data := make([][]string, 0, len(r.Unknown)+len(r.ShapeMismatches)+len(r.Missing))
	for _, name := range r.Unknown {
		data = append(data, []string{"unknown", name, "", ""})
	}
	for _, sm := range r.ShapeMismatches {
		data = append(data, []string{"shape mismatch", sm.Name, sm.Expected.String(), shapeString(sm.Got)})
	}
	for _, name := range r.Missing {
		data = append(data, []string{"missing", name, "", ""})
	}
	if len(data) > 0 {
		table.AppendBulk(data)
		table.Render()
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "%d updated, %d unknown, %d shape mismatches, %d missing\n",
		len(r.Updated), len(r.Unknown), len(r.ShapeMismatches), len(r.Missing))
	return err
}
