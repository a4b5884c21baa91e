package ingest

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher serves canned bodies by URL.
type stubFetcher struct {
	bodies map[string]string
}

func (s *stubFetcher) Download(_ context.Context, url string) (io.ReadCloser, error) {
	body, ok := s.bodies[url]
	if !ok {
		return nil, eris.Errorf("stub: no body for %s", url)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (s *stubFetcher) DownloadToFile(ctx context.Context, url, path string) (int64, error) {
	body, err := s.Download(ctx, url)
	if err != nil {
		return 0, err
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func (s *stubFetcher) DownloadCached(ctx context.Context, url, path string) (bool, error) {
	if st, err := os.Stat(path); err == nil && st.Size() > 0 {
		return true, nil
	}
	_, err := s.DownloadToFile(ctx, url, path)
	return false, err
}

// writeTestZip creates a PUF-shaped archive with the given member contents.
func writeTestZip(t *testing.T, path string, members map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range members {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

const testFactCSV = `MR_SUBMISSION_TEMPLATE_ID,ROW_LOOKUP_CODE,CMM_INDIVIDUAL_YEARLY,CMM_SMALL_GROUP_YEARLY
S1,TOTAL_DIRECT_PREMIUM_EARNED,1000000,250000
S1,TOTAL_INCURRED_CLAIMS_PT2,900000,"200,000"
S1,MEMBER_MONTHS,4400,1100
S2,TOTAL_DIRECT_PREMIUM_EARNED,50000,
S2,TOTAL_INCURRED_CLAIMS_PT2,(2500),
`

const testDimsCSV = `MR_SUBMISSION_TEMPLATE_ID,HIOS_ISSUER_ID,COMPANY_NAME,BUSINESS_STATE,MLR_REPORTING_YEAR
S1,12345,Acme Health,ca,2019
S2,67890,Empire Care,NY,2019
`

func TestLoadYear(t *testing.T) {
	dir := t.TempDir()
	zp := filepath.Join(dir, "mlr_puf_2019.zip")
	writeTestZip(t, zp, map[string]string{
		"MR_Submission_Template_Header.csv":       testDimsCSV,
		"Part1_2_Summary_Data_Premium_Claims.csv": testFactCSV,
	})

	facts, headers, diag, err := LoadYear(context.Background(), zp, false)
	require.NoError(t, err)

	// 5 fact lines x 2 markets.
	assert.Len(t, facts, 10)
	assert.Len(t, headers, 2)
	assert.ElementsMatch(t, []string{"Individual", "Small Group"}, MarketsFromRows(facts))

	assert.Equal(t, "mlr_puf_2019.zip", diag.Archive)
	assert.Equal(t, "Part1_2_Summary_Data_Premium_Claims.csv", diag.FactMember)
	assert.Equal(t, "MR_Submission_Template_Header.csv", diag.DimsMember)
	assert.Equal(t, []string{"Individual", "Small Group"}, diag.Markets)

	recs, err := Decode(facts)
	require.NoError(t, err)
	recs = Join(recs, headers)

	byKey := map[string]int{}
	for i, r := range recs {
		byKey[r.Key()] = i
	}

	r := recs[byKey["12345|CA|Individual|2019"]]
	assert.Equal(t, "Acme Health", r.IssuerName)
	require.NotNil(t, r.EarnedPremium)
	assert.Equal(t, 1000000.0, *r.EarnedPremium)

	// Quoted thousands separators parse.
	sg := recs[byKey["12345|CA|Small Group|2019"]]
	require.NotNil(t, sg.IncurredClaims)
	assert.Equal(t, 200000.0, *sg.IncurredClaims)

	// Accounting-style negatives parse; blank small-group cells stay nil.
	r2 := recs[byKey["67890|NY|Individual|2019"]]
	require.NotNil(t, r2.IncurredClaims)
	assert.Equal(t, -2500.0, *r2.IncurredClaims)
	r2sg := recs[byKey["67890|NY|Small Group|2019"]]
	assert.Nil(t, r2sg.EarnedPremium)
}

func TestLoadYear_NoFactMember(t *testing.T) {
	dir := t.TempDir()
	zp := filepath.Join(dir, "mlr_puf_2019.zip")
	writeTestZip(t, zp, map[string]string{
		"MR_Submission_Template_Header.csv": testDimsCSV,
	})

	_, _, _, err := LoadYear(context.Background(), zp, false)
	assert.Error(t, err)
}

func TestLoadYear_EmptyFactMember(t *testing.T) {
	dir := t.TempDir()
	zp := filepath.Join(dir, "mlr_puf_2019.zip")
	writeTestZip(t, zp, map[string]string{
		"MR_Submission_Template_Header.csv":       testDimsCSV,
		"Part1_2_Summary_Data_Premium_Claims.csv": "",
	})

	// A zero-byte fact member must fail with a diagnosable error, not block
	// waiting for a header that never arrives.
	done := make(chan error, 1)
	go func() {
		_, _, _, err := LoadYear(context.Background(), zp, false)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	case <-time.After(5 * time.Second):
		t.Fatal("LoadYear did not return on an empty fact member")
	}
}

func TestPickDimsMember_SkipsValueTables(t *testing.T) {
	dir := t.TempDir()
	zp := filepath.Join(dir, "mlr_puf_2019.zip")
	writeTestZip(t, zp, map[string]string{
		"Part1_2_Summary_Data_Premium_Claims.csv": testFactCSV,
		// A second value table that must lose the scoring.
		"Part3_MLR_Rebate_Calculation.csv":  "MR_SUBMISSION_TEMPLATE_ID,ROW_LOOKUP_CODE,CMM_INDIVIDUAL_YEARLY\nS1,X,1\n",
		"MR_Submission_Template_Header.csv": testDimsCSV,
	})

	zr, err := zip.OpenReader(zp)
	require.NoError(t, err)
	defer zr.Close() //nolint:errcheck

	member, err := pickDimsMember(zr, "Part1_2_Summary_Data_Premium_Claims.csv")
	require.NoError(t, err)
	assert.Equal(t, "MR_Submission_Template_Header.csv", member.Name)
}

func TestScoreDimsHeader(t *testing.T) {
	dims := snakeHeader([]string{"MR_SUBMISSION_TEMPLATE_ID", "HIOS_ISSUER_ID", "BUSINESS_STATE", "MLR_REPORTING_YEAR"})
	fact := snakeHeader([]string{"MR_SUBMISSION_TEMPLATE_ID", "ROW_LOOKUP_CODE", "CMM_INDIVIDUAL_YEARLY"})

	assert.Equal(t, 15, scoreDimsHeader(dims))
	assert.Less(t, scoreDimsHeader(fact), 10)
}

func TestYearFromZipName(t *testing.T) {
	y, err := YearFromZipName("data/raw/mlr_puf_2021.zip")
	require.NoError(t, err)
	assert.Equal(t, 2021, y)

	_, err = YearFromZipName("panel.zip")
	assert.Error(t, err)
}

func TestDiscoverZipLinks(t *testing.T) {
	page := `<html><body>
<a href="/files/zip/2018.zip">MLR Public Use File for 2018</a>
<a href="https://download.cms.gov/files/2019.zip">Public Use File for 2019 (ZIP)</a>
<a href="/files/zip/2019-dup.zip">Public Use File for 2019</a>
<a href="/files/pdf/notes.pdf">Public Use File for 2020</a>
<a href="/files/zip/other.zip">Methodology overview</a>
</body></html>`

	f := &stubFetcher{bodies: map[string]string{"https://example.test/mlr": page}}
	links, err := DiscoverZipLinks(context.Background(), f, "https://example.test/mlr")
	require.NoError(t, err)

	require.Len(t, links, 2)
	assert.Equal(t, ZipLink{Year: 2018, URL: "https://www.cms.gov/files/zip/2018.zip"}, links[0])
	assert.Equal(t, ZipLink{Year: 2019, URL: "https://download.cms.gov/files/2019.zip"}, links[1])
}

func TestDownloadZips_CachedCopyReused(t *testing.T) {
	dir := t.TempDir()
	page := `<a href="/files/zip/2019.zip">Public Use File for 2019</a>`
	f := &stubFetcher{bodies: map[string]string{
		"https://example.test/mlr":               page,
		"https://www.cms.gov/files/zip/2019.zip": "zipbytes",
	}}

	paths, err := DownloadZips(context.Background(), f, "https://example.test/mlr", dir, []int{2019})
	require.NoError(t, err)
	require.Len(t, paths, 1)

	// Second run keeps the existing bytes instead of refetching.
	delete(f.bodies, "https://www.cms.gov/files/zip/2019.zip")
	paths2, err := DownloadZips(context.Background(), f, "https://example.test/mlr", dir, []int{2019})
	require.NoError(t, err)
	assert.Equal(t, paths, paths2)
}

func TestDownloadZips_NoLinks(t *testing.T) {
	f := &stubFetcher{bodies: map[string]string{"https://example.test/mlr": "<html></html>"}}
	_, err := DownloadZips(context.Background(), f, "https://example.test/mlr", t.TempDir(), []int{2019})
	assert.Error(t, err)
}

func TestDownloadZips_MissingRequestedYear(t *testing.T) {
	// Only 2019 is published; requesting 2018 as well must fail at discovery
	// time, naming the missing year, rather than letting the build attribute
	// the gap to the audit filter later.
	page := `<a href="/files/zip/2019.zip">Public Use File for 2019</a>`
	f := &stubFetcher{bodies: map[string]string{
		"https://example.test/mlr":               page,
		"https://www.cms.gov/files/zip/2019.zip": "zipbytes",
	}}

	_, err := DownloadZips(context.Background(), f, "https://example.test/mlr", t.TempDir(), []int{2018, 2019})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2018")
	assert.NotContains(t, err.Error(), "audit")
}
