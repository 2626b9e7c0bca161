package signal

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irex-4qt/logparser/internal/config"
	"github.com/irex-4qt/logparser/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

var start = time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

func rec(offset float64, group string, kv ...any) Record {
	values := make(map[string]Value)
	for i := 0; i < len(kv); i += 2 {
		switch v := kv[i+1].(type) {
		case float64:
			values[kv[i].(string)] = Number(v)
		case int:
			values[kv[i].(string)] = Number(float64(v))
		case []byte:
			values[kv[i].(string)] = Bytes(v)
		case string:
			values[kv[i].(string)] = Text(v)
		}
	}
	return Record{Offset: offset, Group: group, Values: values}
}

func mustBuild(t *testing.T, records []Record, meta RecordingMetadata, opts BuildOptions) *Table {
	t.Helper()
	tbl, err := Build(NewSliceSource(records), meta, opts)
	require.NoError(t, err)
	return tbl
}

func TestFormatHex(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte{0x0A, 0xFF, 0x01}, "0x0A 0xFF 0x01"},
		{[]byte{}, ""},
		{nil, ""},
		{[]byte{0x00}, "0x00"},
		{[]byte{0xde, 0xad, 0xbe, 0xef}, "0xDE 0xAD 0xBE 0xEF"},
	}
	for _, tt := range tests {
		if got := FormatHex(tt.in); got != tt.want {
			t.Errorf("FormatHex(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Number(0.1), "0.1"},
		{Number(400), "400"},
		{Number(448585456), "448585456"},
		{Number(-2e9), "-2000000000"},
		{Number(-1.5e-7), "-1.5e-07"},
		{Text("on"), "on"},
		{Bytes([]byte{1, 2}), "0x01 0x02"},
		{Value{}, ""},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("%v.String() = %q, want %q", tt.v.Kind(), got, tt.want)
		}
	}
}

func TestBytesCopiesInput(t *testing.T) {
	b := []byte{1, 2, 3}
	v := Bytes(b)
	b[0] = 9

	got, ok := v.Payload()
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got)

	got[1] = 9
	again, _ := v.Payload()
	assert.Equal(t, []byte{1, 2, 3}, again)
}

func TestBuildPreservesRowsAndOrder(t *testing.T) {
	records := []Record{
		rec(0.0, "BMS", "Voltage", 400.0),
		rec(0.5, "BMS", "Current", 10.0),
		rec(0.5, "Motor", "Speed", 100.0),
		rec(1.25, "BMS", "Voltage", 401.0),
	}
	tbl := mustBuild(t, records, RecordingMetadata{Start: start, OffsetUnit: Seconds}, DefaultBuildOptions())

	require.Equal(t, len(records), tbl.Len())
	assert.Equal(t, []float64{0, 0.5, 0.5, 1.25}, tbl.Offsets())
	// Equal offsets keep input order.
	_, ok := tbl.Value(1, "BMS.Current")
	assert.True(t, ok)
	_, ok = tbl.Value(2, "Motor.Speed")
	assert.True(t, ok)

	assert.Equal(t, []string{"BMS.Voltage", "BMS.Current", "Motor.Speed"}, tbl.Columns())
}

func TestBuildSortsUnorderedInput(t *testing.T) {
	records := []Record{
		rec(2, "G", "A", 3),
		rec(0, "G", "A", 1),
		rec(1, "G", "A", 2),
	}
	tbl := mustBuild(t, records, RecordingMetadata{Start: start, OffsetUnit: Seconds}, DefaultBuildOptions())

	_, values := tbl.Column("G.A")
	assert.Equal(t, []float64{1, 2, 3}, values)
	assert.Equal(t, 3, tbl.Len())
}

func TestBuildAbsoluteTimestamps(t *testing.T) {
	records := []Record{
		rec(0, "G", "A", 1),
		rec(1500, "G", "A", 2),
		rec(2000.5, "G", "A", 3),
	}

	tests := []struct {
		name string
		unit TimeUnit
		want []time.Time
	}{
		{
			name: "milliseconds",
			unit: Milliseconds,
			want: []time.Time{
				start,
				start.Add(1500 * time.Millisecond),
				start.Add(2000*time.Millisecond + 500*time.Microsecond),
			},
		},
		{
			name: "seconds",
			unit: Seconds,
			want: []time.Time{
				start,
				start.Add(1500 * time.Second),
				start.Add(2000*time.Second + 500*time.Millisecond),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := mustBuild(t, records, RecordingMetadata{Start: start, OffsetUnit: tt.unit}, DefaultBuildOptions())
			require.True(t, tbl.TimeAsDate())
			for i, want := range tt.want {
				if got := tbl.Sample(i).Time; !got.Equal(want) {
					t.Errorf("row %d time = %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestBuildMillisecondOffsetsInSeconds(t *testing.T) {
	tbl := mustBuild(t, []Record{rec(250, "G", "A", 1)}, RecordingMetadata{Start: start, OffsetUnit: Milliseconds}, DefaultBuildOptions())
	assert.Equal(t, []float64{0.25}, tbl.Offsets())
}

func TestBuildRejectsUnknownUnit(t *testing.T) {
	_, err := Build(NewSliceSource(nil), RecordingMetadata{Start: start, OffsetUnit: "min"}, DefaultBuildOptions())
	assert.Error(t, err)
}

func TestBuildWithoutStartFallsBackToOffsets(t *testing.T) {
	tbl := mustBuild(t, []Record{rec(1, "G", "A", 1)}, RecordingMetadata{OffsetUnit: Seconds}, DefaultBuildOptions())
	assert.False(t, tbl.TimeAsDate())
	assert.True(t, tbl.Sample(0).Time.IsZero())
}

func TestBuildAbsentStaysAbsent(t *testing.T) {
	records := []Record{
		rec(0, "BMS", "Voltage", 400.0, "Current", 10.0),
		rec(1, "BMS", "Voltage", 401.0),
	}
	tbl := mustBuild(t, records, RecordingMetadata{Start: start, OffsetUnit: Seconds}, DefaultBuildOptions())

	_, ok := tbl.Value(1, "BMS.Current")
	assert.False(t, ok, "absent current must not be filled")

	values, present := tbl.Numeric("BMS.Current")
	assert.Equal(t, []bool{true, false}, present)
	assert.Equal(t, []float64{10, 0}, values)
}

func TestBuildOnlyBasenames(t *testing.T) {
	records := []Record{
		rec(0, "BMS_Status", "Voltage", 400.0),
		rec(1, "Inverter_Status", "Voltage", 398.0),
		rec(2, "Mixed", "A.Temp", 20.0, "B.Temp", 30.0),
	}
	tbl := mustBuild(t, records, RecordingMetadata{Start: start, OffsetUnit: Seconds}, BuildOptions{OnlyBasenames: true})

	assert.Equal(t, []string{"Voltage", "Temp"}, tbl.Columns())
	_, values := tbl.Column("Voltage")
	assert.Equal(t, []float64{400, 398}, values)

	// Same-row collision keeps the first value in name order.
	v, ok := tbl.Value(2, "Temp")
	require.True(t, ok)
	f, _ := v.Float()
	assert.Equal(t, 20.0, f)
}

func TestBuildInterpolation(t *testing.T) {
	records := []Record{
		rec(0, "G", "Label", "a"),
		rec(1, "G", "V", 10.0),
		rec(2, "G", "Label", "b"),
		rec(4, "G", "V", 40.0),
		rec(5, "G", "Label", "c"),
	}
	meta := RecordingMetadata{Start: start, OffsetUnit: Seconds}

	plain := mustBuild(t, records, meta, BuildOptions{})
	interp := mustBuild(t, records, meta, BuildOptions{UseInterpolation: true})

	_, ok := plain.Value(2, "G.V")
	assert.False(t, ok)

	values, present := interp.Numeric("G.V")
	assert.Equal(t, []bool{false, true, true, true, false}, present, "leading and trailing gaps stay absent")
	assert.InDelta(t, 20.0, values[2], 1e-12)

	_, ok = interp.Value(1, "G.Label")
	assert.False(t, ok, "text columns are not interpolated")
}

func TestInterpolateEqualOffsets(t *testing.T) {
	tbl := NewTable(nil, []Sample{
		{Offset: 1, Values: map[string]Value{"V": Number(1)}},
		{Offset: 1, Values: map[string]Value{}},
		{Offset: 1, Values: map[string]Value{"V": Number(3)}},
	}, false)

	v, ok := tbl.Interpolate().Value(1, "V")
	require.True(t, ok)
	f, _ := v.Float()
	assert.Equal(t, 1.0, f)
}

func TestBuildOptionsFrom(t *testing.T) {
	yes, no := true, false
	got := BuildOptionsFrom(config.ExportSettings{OnlyBasenames: &yes, TimestampsAsDate: &no})
	want := BuildOptions{OnlyBasenames: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildOptionsFrom() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, DefaultBuildOptions(), BuildOptionsFrom(config.ExportSettings{}))
}

func TestColumnName(t *testing.T) {
	tests := []struct {
		opts        BuildOptions
		group, name string
		want        string
	}{
		{BuildOptions{}, "CAN_DataFrame", "DataBytes", "CAN_DataFrame.DataBytes"},
		{BuildOptions{}, "", "DataBytes", "DataBytes"},
		{BuildOptions{OnlyBasenames: true}, "CAN_DataFrame", "DataBytes", "DataBytes"},
		{BuildOptions{OnlyBasenames: true}, "G", "Msg.Signal", "Signal"},
	}
	for _, tt := range tests {
		if got := tt.opts.ColumnName(tt.group, tt.name); got != tt.want {
			t.Errorf("ColumnName(%q, %q) = %q, want %q", tt.group, tt.name, got, tt.want)
		}
	}
}

type failingSource struct{ SliceSource }

func (failingSource) Err() error { return errors.New("truncated frame") }

func TestBuildPropagatesSourceError(t *testing.T) {
	_, err := Build(&failingSource{}, RecordingMetadata{OffsetUnit: Seconds}, BuildOptions{})
	assert.EqualError(t, err, "truncated frame")
}

func TestRawBytesView(t *testing.T) {
	records := []Record{
		rec(0, "CAN_DataFrame", "ID", 0x123, "DataBytes", []byte{0x0A, 0xFF, 0x01}),
		rec(1, "CAN_DataFrame", "ID", 0x124, "DataBytes", []byte{}),
		rec(2, "CAN_DataFrame", "ID", 0x125),
	}
	tbl := mustBuild(t, records, RecordingMetadata{Start: start, OffsetUnit: Seconds}, DefaultBuildOptions())

	view, err := RawBytesView(tbl, "CAN_DataFrame.DataBytes")
	require.NoError(t, err)

	v, _ := view.Value(0, "CAN_DataFrame.DataBytes")
	assert.Equal(t, KindText, v.Kind())
	assert.Equal(t, "0x0A 0xFF 0x01", v.String())

	v, ok := view.Value(1, "CAN_DataFrame.DataBytes")
	require.True(t, ok)
	assert.Equal(t, "", v.String())

	_, ok = view.Value(2, "CAN_DataFrame.DataBytes")
	assert.False(t, ok)

	id, _ := view.Value(0, "CAN_DataFrame.ID")
	assert.True(t, id.Equal(Number(0x123)), "other columns untouched")

	orig, _ := tbl.Value(0, "CAN_DataFrame.DataBytes")
	assert.Equal(t, KindBytes, orig.Kind(), "source table is not modified")
}

func TestRawBytesViewMalformed(t *testing.T) {
	tbl := NewTable(nil, []Sample{
		{Offset: 0, Values: map[string]Value{"DataBytes": Bytes([]byte{0x01})}},
		{Offset: 1, Values: map[string]Value{"DataBytes": Number(7)}},
		{Offset: 2, Values: map[string]Value{"DataBytes": Bytes([]byte{0x02})}},
		{Offset: 3, Values: map[string]Value{"DataBytes": Text("0x03")}},
	}, false)

	view, err := RawBytesView(tbl, "DataBytes")
	require.Error(t, err)

	var malformed *MalformedPayloadError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, 1, malformed.Row)
	assert.Equal(t, KindNumber, malformed.Kind)
	assert.Contains(t, err.Error(), "row 3")

	require.Equal(t, 4, view.Len())
	v, _ := view.Value(0, "DataBytes")
	assert.Equal(t, "0x01", v.String())
	_, ok := view.Value(1, "DataBytes")
	assert.False(t, ok, "malformed cell is left absent")
	v, _ = view.Value(2, "DataBytes")
	assert.Equal(t, "0x02", v.String())
}

func TestRawBytesViewMissingColumn(t *testing.T) {
	tbl := NewTable([]string{"A"}, []Sample{{Values: map[string]Value{"A": Number(1)}}}, false)
	view, err := RawBytesView(tbl, "DataBytes")
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns(), view.Columns())
}

func TestNewTableColumnOrder(t *testing.T) {
	tbl := NewTable([]string{"B", "A", "B"}, []Sample{
		{Values: map[string]Value{"C": Number(1), "A": Number(2)}},
	}, true)
	assert.Equal(t, []string{"B", "A", "C"}, tbl.Columns())
	assert.True(t, tbl.TimeAsDate())
}

func TestTableIsImmutable(t *testing.T) {
	samples := []Sample{{Offset: 0, Values: map[string]Value{"A": Number(1)}}}
	tbl := NewTable(nil, samples, false)

	samples[0].Values["A"] = Number(99)
	s := tbl.Sample(0)
	s.Values["A"] = Number(42)
	cols := tbl.Columns()
	cols[0] = "Z"

	v, _ := tbl.Value(0, "A")
	assert.True(t, v.Equal(Number(1)))
	assert.Equal(t, []string{"A"}, tbl.Columns())
}

func TestSelect(t *testing.T) {
	tbl := NewTable(nil, []Sample{
		{Offset: 0, Values: map[string]Value{"A": Number(1), "B": Number(2)}},
		{Offset: 1, Values: map[string]Value{"C": Number(3)}},
	}, false)

	sel := tbl.Select("C", "missing", "A")
	assert.Equal(t, []string{"C", "A"}, sel.Columns())
	assert.Equal(t, 2, sel.Len())
	_, ok := sel.Value(0, "B")
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	tbl := NewTable([]string{"BMS.Voltage", "Inverter.Voltage", "Current", "Motor.Speed"}, nil, false)

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"Current", "Current", true},
		{"Voltage", "BMS.Voltage", true},
		{"Inverter.Voltage", "Inverter.Voltage", true},
		{"Speed", "Motor.Speed", true},
		{"Motor", "", false},
		{"Temp", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tbl.Resolve(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
