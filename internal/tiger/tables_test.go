package tiger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadURL_Blocks(t *testing.T) {
	url, err := DownloadURL(Blocks, 2020, "04")
	require.NoError(t, err)
	assert.Equal(t, "https://www2.census.gov/geo/tiger/TIGER2020/TABBLOCK20/tl_2020_04_tabblock20.zip", url)
}

func TestDownloadURL_BlockGroups(t *testing.T) {
	p, ok := ProductByName("bg")
	require.True(t, ok)

	url, err := DownloadURL(p, 2023, "24")
	require.NoError(t, err)
	assert.Equal(t, "https://www2.census.gov/geo/tiger/TIGER2023/BG/tl_2023_24_bg.zip", url)
}

func TestDownloadURL_Rejects(t *testing.T) {
	_, err := DownloadURL(Blocks, 2019, "04")
	assert.Error(t, err)

	_, err = DownloadURL(Blocks, 2020, "99")
	assert.Error(t, err)
}

func TestProductByName_NotFound(t *testing.T) {
	_, ok := ProductByName("EDGES")
	assert.False(t, ok)
}

func TestFIPSCodes(t *testing.T) {
	assert.Equal(t, "04", FIPSCodes["AZ"])
	assert.Equal(t, "11", FIPSCodes["DC"])
	assert.Equal(t, "72", FIPSCodes["PR"])
	assert.Equal(t, "48", FIPSCodes["TX"])
}

func TestAbbrFromFIPS(t *testing.T) {
	abbr, ok := AbbrFromFIPS("24")
	assert.True(t, ok)
	assert.Equal(t, "MD", abbr)

	_, ok = AbbrFromFIPS("99")
	assert.False(t, ok)
}

func TestStateFIPS(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"AZ", "04", false},
		{" az ", "04", false},
		{"04", "04", false},
		{"72", "72", false},
		{"ZZ", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := StateFIPS(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllStateFIPS(t *testing.T) {
	fips := AllStateFIPS()
	assert.Len(t, fips, len(FIPSCodes))
	for i := 1; i < len(fips); i++ {
		assert.True(t, fips[i-1] <= fips[i], "FIPS codes should be sorted")
	}
}
