package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr error
	}{
		{name: "plain bytes", input: "1024", want: 1024},
		{name: "zero", input: "0", want: 0},
		{name: "byte suffix", input: "512B", want: 512},
		{name: "kilobytes", input: "100K", want: 100 * KiB},
		{name: "kibibytes", input: "100KiB", want: 100 * KiB},
		{name: "megabytes lowercase", input: "50m", want: 50 * MiB},
		{name: "gigabytes", input: "2G", want: 2 * GiB},
		{name: "terabytes", input: "1TB", want: TiB},
		{name: "decimal", input: "1.5G", want: int64(1.5 * float64(GiB))},
		{name: "whitespace", input: "  100M  ", want: 100 * MiB},
		{name: "empty", input: "", wantErr: ErrInvalidSize},
		{name: "negative", input: "-5M", wantErr: ErrNegativeSize},
		{name: "garbage", input: "abc", wantErr: ErrInvalidSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{MiB, "1.00 MiB"},
		{10240000, "9.77 MiB"},
		{GiB, "1.00 GiB"},
		{5 * GiB / 2, "2.50 GiB"},
		{TiB, "1.00 TiB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSize(tt.bytes), "FormatSize(%d)", tt.bytes)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500ms", FormatDuration(500*time.Millisecond))
	assert.Equal(t, "3.7s", FormatDuration(3700*time.Millisecond))
	assert.Equal(t, "2m 5s", FormatDuration(125*time.Second))
}

func TestSafetyLabelJSON(t *testing.T) {
	data, err := json.Marshal(Caution)
	require.NoError(t, err)
	assert.Equal(t, `"caution"`, string(data))

	var label SafetyLabel
	require.NoError(t, json.Unmarshal([]byte(`"dangerous"`), &label))
	assert.Equal(t, Dangerous, label)

	assert.Error(t, json.Unmarshal([]byte(`"lethal"`), &label))
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"preview", "soft", "hard", "SOFT"} {
		_, err := ParseMode(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseMode("gentle")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestInventoryRecalculate(t *testing.T) {
	inv := Inventory{
		Items: []InventoryItem{
			{Name: "a", Bytes: 100, FileCount: 2},
			{Name: "b", Bytes: 50, FileCount: 1},
		},
	}
	inv.Recalculate()
	assert.Equal(t, int64(150), inv.TotalBytes)
	assert.Equal(t, 3, inv.TotalFiles)

	require.NotNil(t, inv.Item("b"))
	assert.Nil(t, inv.Item("missing"))
}

func TestDuplicateGroupReclaimable(t *testing.T) {
	g := DuplicateGroup{
		Paths:     []string{"/a", "/b", "/c"},
		SizeBytes: 1000,
	}
	assert.Equal(t, int64(2000), g.Reclaimable())

	single := DuplicateGroup{Paths: []string{"/a"}, SizeBytes: 1000}
	assert.Equal(t, int64(0), single.Reclaimable())
}
