package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/troy3977-blip/mcr-ai-insights/internal/model"
)

func fv(v float64) *float64 { return &v }

func samplePanel() []model.PanelRecord {
	return []model.PanelRecord{
		{
			IssuerID:       "12345",
			IssuerName:     "Acme Health",
			State:          "CA",
			Market:         "Individual",
			Year:           2019,
			EarnedPremium:  1000000,
			IncurredClaims: 850000,
			LogPremium:     13.8155,
			MCR:            0.85,
			BaselineMCR:    fv(0.82),
			MCRDelta:       fv(0.03),
		},
		{
			IssuerID:       "67890",
			IssuerName:     "Beta Mutual",
			State:          "TX",
			Market:         "Small Group",
			Year:           2020,
			EarnedPremium:  500000,
			IncurredClaims: 400000,
			LogPremium:     13.1224,
			MCR:            0.8,
		},
	}
}

func TestBasePanelRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), BasePanelName)
	records := samplePanel()

	require.NoError(t, WriteBasePanel(path, records))

	got, err := ReadBasePanel(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "12345", got[0].IssuerID)
	assert.Equal(t, "Individual", got[0].Market)
	assert.Equal(t, 2019, got[0].Year)
	assert.InDelta(t, 0.85, got[0].MCR, 1e-9)
	require.NotNil(t, got[0].BaselineMCR)
	assert.InDelta(t, 0.82, *got[0].BaselineMCR, 1e-9)

	// Optional columns read back empty as nil.
	assert.Nil(t, got[1].BaselineMCR)
	assert.Nil(t, got[1].CPIMedical)
}

func TestModelPanelRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ModelPanelName)
	records := []model.ModelRecord{
		{
			PanelRecord:       samplePanel()[0],
			PremiumWeight:     1.5,
			W:                 1.5,
			PremiumWeightYear: 2.0,
			WYear:             2.0,
		},
	}

	require.NoError(t, WriteModelPanel(path, records))

	got, err := ReadModelPanel(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 1.5, got[0].PremiumWeight, 1e-9)
	assert.InDelta(t, 2.0, got[0].WYear, 1e-9)
	assert.Equal(t, "12345", got[0].IssuerID)
}

func TestWriteIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), BasePanelName)
	records := samplePanel()

	require.NoError(t, WriteBasePanel(path, records))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, WriteBasePanel(path, records))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestWriteLeavesNoStagedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, BasePanelName)

	require.NoError(t, WriteBasePanel(path, samplePanel()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, BasePanelName, entries[0].Name())
}

func TestWriteCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", BasePanelName)
	require.NoError(t, WriteBasePanel(path, samplePanel()))
	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestReadMissingFile(t *testing.T) {
	_, err := ReadBasePanel(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}
