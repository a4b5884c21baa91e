package ingest

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/troy3977-blip/mcr-ai-insights/internal/fetcher"
)

// factMemberName is the Part 1/2 premium and claims fact table inside each
// year's public use file archive.
const factMemberName = "part1_2_summary_data_premium_claims.csv"

var (
	pufLinkRe = regexp.MustCompile(`(?is)<a[^>]+href="([^"]+\.zip)"[^>]*>(.*?)</a>`)
	pufYearRe = regexp.MustCompile(`Public Use File for (\d{4})`)
	zipYearRe = regexp.MustCompile(`(\d{4})`)
)

// ZipLink is a discovered public use file archive for one reporting year.
type ZipLink struct {
	Year int
	URL  string
}

// DiscoverZipLinks scrapes the CMS resource page for "Public Use File for
// YYYY" archive links, deduplicated by year and sorted ascending.
func DiscoverZipLinks(ctx context.Context, f fetcher.Fetcher, pageURL string) ([]ZipLink, error) {
	body, err := f.Download(ctx, pageURL)
	if err != nil {
		return nil, eris.Wrap(err, "cms: fetch resource page")
	}
	defer body.Close() //nolint:errcheck

	html, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrap(err, "cms: read resource page")
	}

	byYear := make(map[int]string)
	for _, m := range pufLinkRe.FindAllStringSubmatch(string(html), -1) {
		href, text := m[1], m[2]
		ym := pufYearRe.FindStringSubmatch(text)
		if ym == nil {
			continue
		}
		year := parseIntOr(ym[1], 0)
		if !strings.HasPrefix(href, "http") {
			href = "https://www.cms.gov" + href
		}
		if _, seen := byYear[year]; !seen {
			byYear[year] = href
		}
	}

	links := make([]ZipLink, 0, len(byYear))
	for y, u := range byYear {
		links = append(links, ZipLink{Year: y, URL: u})
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Year < links[j].Year })
	return links, nil
}

// DownloadZips fetches the archive for each requested year into rawDir,
// reusing cached copies. Returns the local paths in year order.
func DownloadZips(ctx context.Context, f fetcher.Fetcher, pageURL, rawDir string, years []int) ([]string, error) {
	links, err := DiscoverZipLinks(ctx, f, pageURL)
	if err != nil {
		return nil, err
	}

	wanted := make(map[int]bool, len(years))
	for _, y := range years {
		wanted[y] = true
	}

	var paths []string
	found := make(map[int]bool, len(years))
	for _, link := range links {
		if len(wanted) > 0 && !wanted[link.Year] {
			continue
		}
		found[link.Year] = true
		p := filepath.Join(rawDir, fmt.Sprintf("mlr_puf_%d.zip", link.Year))
		cached, err := f.DownloadCached(ctx, link.URL, p)
		if err != nil {
			return nil, eris.Wrapf(err, "cms: download archive for %d", link.Year)
		}
		zap.L().Info("archive ready",
			zap.Int("year", link.Year),
			zap.String("path", p),
			zap.Bool("cached", cached),
		)
		paths = append(paths, p)
	}

	// Fail at discovery time so a missing archive is never misread downstream
	// as an audit filter emptying the year.
	var missing []int
	for _, y := range years {
		if !found[y] {
			missing = append(missing, y)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("cms: no archive link discovered for reporting years %v; "+
			"if the CMS page changed, place the archives in the raw directory manually", missing)
	}
	if len(paths) == 0 {
		return nil, eris.New("cms: no archive links discovered; " +
			"if the CMS page changed, place the archives in the raw directory manually")
	}
	return paths, nil
}

// YearFromZipName infers the reporting year from an archive filename like
// mlr_puf_2019.zip.
func YearFromZipName(name string) (int, error) {
	m := zipYearRe.FindStringSubmatch(path.Base(name))
	if m == nil {
		return 0, eris.Errorf("cms: cannot infer year from archive name %q", name)
	}
	return parseIntOr(m[1], 0), nil
}

// dimsInfo is the issuer identity attached to one submission template.
type dimsInfo struct {
	issuerID   string
	issuerName string
	state      string
	year       int
}

// YearDiagnostics describes how one year's archive was ingested: which
// members were selected and which markets the fact table carried.
type YearDiagnostics struct {
	Archive    string
	FactMember string
	DimsMember string
	Markets    []string
}

// LoadYear reads one year's archive and emits the two logical tables: coded
// fact rows resolved to issuer/state/market, and header rows for the joiner.
func LoadYear(ctx context.Context, zipPath string, includeLargeGroup bool) ([]RawFactRow, []RawHeaderRow, YearDiagnostics, error) {
	diag := YearDiagnostics{Archive: filepath.Base(zipPath)}

	zipYear, err := YearFromZipName(zipPath)
	if err != nil {
		return nil, nil, diag, err
	}
	log := zap.L().With(zap.Int("year", zipYear), zap.String("archive", diag.Archive))

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, nil, diag, eris.Wrapf(err, "cms: open archive %s", zipPath)
	}
	defer zr.Close() //nolint:errcheck

	factMember, err := pickFactMember(zr)
	if err != nil {
		return nil, nil, diag, err
	}
	dimsMember, err := pickDimsMember(zr, factMember.Name)
	if err != nil {
		return nil, nil, diag, err
	}
	diag.FactMember = factMember.Name
	diag.DimsMember = dimsMember.Name
	log.Debug("archive members selected",
		zap.String("fact", factMember.Name),
		zap.String("dims", dimsMember.Name),
	)

	dims, headerRows, err := readDims(dimsMember, zipYear)
	if err != nil {
		return nil, nil, diag, err
	}

	factRows, err := readFact(ctx, factMember, zipYear, dims, includeLargeGroup)
	if err != nil {
		return nil, nil, diag, err
	}
	if len(factRows) == 0 {
		return nil, nil, diag, eris.Errorf("cms: join produced no rows for %s; dims member %s carries no matching submissions",
			diag.Archive, dimsMember.Name)
	}
	diag.Markets = MarketsFromRows(factRows)

	log.Info("archive ingested",
		zap.Int("fact_rows", len(factRows)),
		zap.Int("header_rows", len(headerRows)),
		zap.Strings("markets", diag.Markets),
	)
	return factRows, headerRows, diag, nil
}

// pickFactMember locates the Part 1/2 premium and claims CSV.
func pickFactMember(zr *zip.ReadCloser) (*zip.File, error) {
	var members []string
	for _, zf := range zr.File {
		members = append(members, zf.Name)
		if strings.EqualFold(path.Base(zf.Name), factMemberName) {
			return zf, nil
		}
	}
	return nil, eris.Errorf("cms: fact member %q not found, archive members: %v", factMemberName, members)
}

// pickDimsMember scores every other CSV member's header for dimension-table
// shape: submission id and issuer identity score up, fact-table markers
// score down. The winner must clear a floor so a value table is never
// misread as the header table.
func pickDimsMember(zr *zip.ReadCloser, excludeMember string) (*zip.File, error) {
	bestScore := -1 << 30
	var best *zip.File

	for _, zf := range zr.File {
		if !strings.HasSuffix(strings.ToLower(zf.Name), ".csv") || zf.Name == excludeMember {
			continue
		}
		header, err := readMemberHeader(zf)
		if err != nil {
			continue
		}
		score := scoreDimsHeader(snakeHeader(header))
		if score > bestScore || (score == bestScore && best != nil && zf.Name < best.Name) {
			bestScore = score
			best = zf
		}
	}

	if best == nil || bestScore < 10 {
		return nil, eris.Errorf("cms: no dimension member found (best score %d)", bestScore)
	}
	return best, nil
}

func readMemberHeader(zf *zip.File) ([]string, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	return fetcher.ReadCSVHead(rc)
}

func scoreDimsHeader(cols []string) int {
	s := 0
	issuerLike := map[string]bool{"issuer_id": true, "hios_issuer_id": true, "hiosissuerid": true, "issuerid": true}
	yearLike := map[string]bool{"reporting_year": true, "mlr_reporting_year": true, "mlr_year": true, "report_year": true}

	for _, c := range cols {
		switch {
		case c == "mr_submission_template_id":
			s += 5
		case issuerLike[c]:
			s += 4
		case yearLike[c]:
			s += 3
		case c == "row_lookup_code":
			s -= 6
		case strings.HasPrefix(c, "cmm_"):
			s -= 6
		}
	}
	for _, c := range cols {
		if strings.Contains(c, "state") {
			s += 3
			break
		}
	}
	return s
}

// readDims reads the dimension member into a submission-id lookup plus the
// header rows the joiner consumes.
func readDims(zf *zip.File, zipYear int) (map[string]dimsInfo, []RawHeaderRow, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, nil, eris.Wrapf(err, "cms: open dims member %s", zf.Name)
	}
	defer rc.Close() //nolint:errcheck

	header, rows, err := fetcher.ReadCSV(rc)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "cms: read dims member %s", zf.Name)
	}

	dl, err := ResolveDims(zipYear, header)
	if err != nil {
		return nil, nil, err
	}

	dims := make(map[string]dimsInfo, len(rows))
	headerRows := make([]RawHeaderRow, 0, len(rows))
	for _, record := range rows {
		subID := strings.TrimSpace(cell(record, dl.SubmissionID))
		if subID == "" {
			continue
		}

		info := dimsInfo{
			issuerID: strings.TrimSpace(cell(record, dl.IssuerID)),
			state:    strings.ToUpper(strings.TrimSpace(cell(record, dl.State))),
			year:     zipYear,
		}
		if dl.IssuerName >= 0 {
			info.issuerName = trimQuotes(cell(record, dl.IssuerName))
		}
		if dl.Year >= 0 {
			if y := parseIntOr(cell(record, dl.Year), 0); y != 0 {
				info.year = y
			}
		}

		// Restated submissions appear once per template id; keep the first.
		if _, seen := dims[subID]; !seen {
			dims[subID] = info
		}
		headerRows = append(headerRows, RawHeaderRow{
			IssuerID:   info.issuerID,
			IssuerName: info.issuerName,
			Year:       info.year,
		})
	}

	return dims, headerRows, nil
}

// readFact streams the fact member, resolving each coded line against the
// dimension lookup and fanning it out per market column.
func readFact(ctx context.Context, zf *zip.File, zipYear int, dims map[string]dimsInfo, includeLargeGroup bool) ([]RawFactRow, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, eris.Wrapf(err, "cms: open fact member %s", zf.Name)
	}
	defer rc.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, rc, fetcher.CSVOptions{
		HasHeader:  true,
		HeaderCh:   headerCh,
		LazyQuotes: true,
		TrimSpace:  true,
	})

	var fl FactLayout
	select {
	case header, ok := <-headerCh:
		if !ok {
			return nil, eris.Errorf("cms: fact member %s is empty", zf.Name)
		}
		fl, err = ResolveFact(zipYear, header, includeLargeGroup)
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "cms: read fact header")
	}

	var out []RawFactRow
	for record := range rowCh {
		subID := cell(record, fl.SubmissionID)
		info, ok := dims[subID]
		if !ok {
			continue
		}
		code := cell(record, fl.RowCode)
		if code == "" {
			continue
		}

		for _, mc := range fl.Markets {
			out = append(out, RawFactRow{
				IssuerID: info.issuerID,
				State:    info.state,
				Market:   mc.Market,
				Year:     info.year,
				RowCode:  code,
				Value:    parseFloat(cell(record, mc.Col)),
			})
		}
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrapf(err, "cms: stream fact member %s", zf.Name)
	}

	return out, nil
}

// MarketsFromRows reports the markets observed in the fact rows, for
// diagnostics.
func MarketsFromRows(rows []RawFactRow) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rows {
		if !seen[r.Market] {
			seen[r.Market] = true
			out = append(out, r.Market)
		}
	}
	sort.Strings(out)
	return out
}
