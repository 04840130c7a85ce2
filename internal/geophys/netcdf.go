package geophys

import (
	"context"
	"fmt"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"satcore/pkg/domain"
)

// Decoder turns a downloaded product file into a Grid.
type Decoder interface {
	Decode(ctx context.Context, path string) (Grid, error)
}

// NetCDFDecoder reads one 2-D int16 variable from a group of a NetCDF-4 file.
type NetCDFDecoder struct {
	Group    string
	Variable string
}

// Decode implements Decoder.
func (d NetCDFDecoder) Decode(ctx context.Context, path string) (Grid, error) {
	if err := ctx.Err(); err != nil {
		return Grid{}, err
	}
	return LoadNetCDF(path, d.Group, d.Variable)
}

// LoadNetCDF opens path, reads group/variable and decodes it with the
// variable's _FillValue, scale_factor and add_offset attributes. An empty
// group reads from the root group.
func LoadNetCDF(path, group, variable string) (Grid, error) {
	root, err := netcdf.Open(path)
	if err != nil {
		return Grid{}, &domain.BackendError{Op: "open netcdf " + path, Err: err}
	}
	defer root.Close()

	g := root
	if group != "" {
		g, err = root.GetGroup(group)
		if err != nil {
			return Grid{}, &domain.FormatError{Source: path, Detail: fmt.Sprintf("group %q: %v", group, err)}
		}
	}
	v, err := g.GetVariable(variable)
	if err != nil {
		return Grid{}, &domain.FormatError{Source: path, Detail: fmt.Sprintf("variable %q: %v", variable, err)}
	}

	raw, w, h, err := flatten2D(v.Values)
	if err != nil {
		return Grid{}, &domain.FormatError{Source: path, Detail: fmt.Sprintf("variable %q: %v", variable, err)}
	}
	attrs, err := packingAttrs(v.Attributes)
	if err != nil {
		return Grid{}, &domain.FormatError{Source: path, Detail: fmt.Sprintf("variable %q: %v", variable, err)}
	}
	return Decode(raw, w, h, attrs)
}

// flatten2D accepts [][]int16 as produced for 2-D short variables.
func flatten2D(values any) ([]int16, int, int, error) {
	rows, ok := values.([][]int16)
	if !ok {
		return nil, 0, 0, fmt.Errorf("expected 2-D int16 data, got %T", values)
	}
	h := len(rows)
	if h == 0 {
		return nil, 0, 0, nil
	}
	w := len(rows[0])
	out := make([]int16, 0, w*h)
	for y, row := range rows {
		if len(row) != w {
			return nil, 0, 0, fmt.Errorf("row %d has %d cells, want %d", y, len(row), w)
		}
		out = append(out, row...)
	}
	return out, w, h, nil
}

func packingAttrs(m api.AttributeMap) (Attrs, error) {
	attrs := DefaultAttrs()
	if m == nil {
		return attrs, nil
	}
	if raw, ok := m.Get("_FillValue"); ok {
		f, err := scalar(raw)
		if err != nil {
			return Attrs{}, fmt.Errorf("_FillValue: %w", err)
		}
		attrs.Fill, attrs.HasFill = int16(f), true
	}
	if raw, ok := m.Get("scale_factor"); ok {
		f, err := scalar(raw)
		if err != nil {
			return Attrs{}, fmt.Errorf("scale_factor: %w", err)
		}
		attrs.Scale = float32(f)
	}
	if raw, ok := m.Get("add_offset"); ok {
		f, err := scalar(raw)
		if err != nil {
			return Attrs{}, fmt.Errorf("add_offset: %w", err)
		}
		attrs.Offset = float32(f)
	}
	return attrs, nil
}

// scalar reads a numeric attribute stored either as a scalar or as a
// one-element slice.
func scalar(v any) (float64, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if rv.Len() != 1 {
			return 0, fmt.Errorf("expected one value, got %d", rv.Len())
		}
		rv = rv.Index(0)
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32:
		return float64(float32(rv.Float())), nil
	case reflect.Float64:
		return rv.Float(), nil
	default:
		return 0, fmt.Errorf("unsupported attribute type %T", v)
	}
}
