package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mtwest2718/ukhe-finances/internal/errors"
	"github.com/mtwest2718/ukhe-finances/internal/files"
	"github.com/mtwest2718/ukhe-finances/internal/shared/testutil"
	"github.com/mtwest2718/ukhe-finances/pkg/contracts/domain"
)

const headerRows = testutil.HESAHeaderRows

var hesaCSV = testutil.HESACSV

func writeFile(t *testing.T, dir, name, content string) files.FileInfo {
	t.Helper()
	path := testutil.WriteFile(t, dir, name, content)
	return files.FileInfo{Path: path, Name: name, Kind: files.KindOf(name)}
}

func writeZip(t *testing.T, dir, name string, members map[string]string) files.FileInfo {
	t.Helper()
	path := testutil.WriteZip(t, dir, name, members)
	return files.FileInfo{Path: path, Name: name, Kind: domain.SourceZip}
}

func excluded(year string) bool { return year == "2015/16" }

func newTestLoader(workDir string, keep bool) *Loader {
	return New(Options{
		HeaderRows:    headerRows,
		ExcludedYear:  excluded,
		WorkDir:       workDir,
		KeepExtracted: keep,
	}, nil)
}

const table1Header = "UKPRN,HE Provider,Country of HE provider,Region of HE provider,Academic Year,Category marker,Category,Value(£000s)"

func TestLoad_CSV(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "table-1.csv", hesaCSV(table1Header,
		`,Total England,England,All,2019/20,Income,Total income,999999`,
		`10007783,The University of Aberdeen,Scotland,Scotland,2015/16,Income,Total income,100`,
		`10007783,The University of Aberdeen,Scotland,Scotland,2019/20,Income,Total income,"1,000"`,
		`10007783,The University of Aberdeen,Scotland,Scotland,2019/20,Expenditure,Staff costs,(400)`,
		`10007783,The University of Aberdeen,Scotland,Scotland,2019/20,Expenditure,Total expenditure,`,
	))

	report := &domain.TableReport{TableID: 1}
	table, err := newTestLoader(t.TempDir(), false).Load(context.Background(), 1, src, report)
	require.NoError(t, err)

	assert.Equal(t, []string{"ukprn", "he provider", "academic year", "category marker", "category", "value"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"10007783", "The University of Aberdeen", "2019/20", "Income", "Total income", "1,000"}, table.Rows[0])
	assert.Equal(t, "(400)", table.Rows[1][5])
	assert.Equal(t, domain.SourceCSV, table.Kind)

	assert.Equal(t, 5, report.RowsRead)
	assert.Equal(t, 1, report.Dropped[domain.DropSectorTotal])
	assert.Equal(t, 1, report.Dropped[domain.DropExcludedYear])
	assert.Equal(t, 1, report.Dropped[domain.DropBlankValue])
	assert.Equal(t, "table-1.csv", report.Source)
	assert.Equal(t, domain.SourceCSV, report.Kind)

	assert.Equal(t, []int{3, 4}, table.MetadataIndexes())
}

func TestLoad_YearEndMonth(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "table-4.csv", hesaCSV(
		"UKPRN,HE provider,Country of HE provider,Region of HE provider,Academic year,Year End Month,Financial Year End,Category,Value",
		`1,A,England,London,2019/20,All,July,Interest paid,5`,
		`1,A,England,London,2019/20,July,July,Interest paid,3`,
	))

	report := &domain.TableReport{TableID: 4}
	table, err := newTestLoader(t.TempDir(), false).Load(context.Background(), 4, src, report)
	require.NoError(t, err)

	assert.Equal(t, []string{"ukprn", "he provider", "academic year", "category", "value"}, table.Columns)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "5", table.Rows[0][4])
	assert.Equal(t, 1, report.Dropped[domain.DropPartialYear])
}

func TestLoad_BOMAndShortRows(t *testing.T) {
	dir := t.TempDir()
	content := "\ufeffUKPRN,HE provider,Academic year,Category,Value\n" +
		"1,A,2019/20,Total income,10,,\n" +
		"2,B,2019/20,Total income\n"
	src := writeFile(t, dir, "table-1.csv", content)

	report := &domain.TableReport{TableID: 1}
	l := New(Options{HeaderRows: 0}, nil)
	table, err := l.Load(context.Background(), 1, src, report)
	require.NoError(t, err)

	assert.Equal(t, "ukprn", table.Columns[0])
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"1", "A", "2019/20", "Total income", "10"}, table.Rows[0])
	assert.Equal(t, 1, report.Dropped[domain.DropBlankValue])
}

func TestLoad_SchemaErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errType apperrors.ErrorType
		want    string
	}{
		{
			name:    "missing academic year",
			content: hesaCSV("UKPRN,HE provider,Category,Value", "1,A,x,1"),
			errType: apperrors.ErrTypeSchema,
			want:    `"academic year"`,
		},
		{
			name:    "missing value column",
			content: hesaCSV("UKPRN,HE provider,Academic year,Category,Amount", "1,A,2019/20,x,1"),
			errType: apperrors.ErrTypeSchema,
			want:    `"value"`,
		},
		{
			name:    "file shorter than preamble",
			content: "only\ntwo lines\n",
			errType: apperrors.ErrTypeSchema,
			want:    "no header row",
		},
		{
			name:    "overlong row",
			content: hesaCSV("UKPRN,HE provider,Academic year,Category,Value", "1,A,2019/20,x,1,surplus"),
			errType: apperrors.ErrTypeParsing,
			want:    "6 fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := writeFile(t, t.TempDir(), "table-7.csv", tt.content)
			_, err := newTestLoader("", false).Load(context.Background(), 7, src, &domain.TableReport{TableID: 7})
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.errType), err.Error())
			assert.Contains(t, err.Error(), tt.want)

			id, ok := apperrors.TableID(err)
			require.True(t, ok)
			assert.Equal(t, 7, id)
		})
	}
}

const table11Header = "UKPRN,HE provider,Academic year,Head of provider marker,Head of provider,Remuneration type,Category,Value"

func TestLoad_Archive(t *testing.T) {
	dir := t.TempDir()
	src := writeZip(t, dir, "table-11.zip", map[string]string{
		"table-11-2017.csv": hesaCSV(table11Header, `1,A,2016/17,Total,Smith,Pay,Basic salary,200`),
		"table-11-2016.csv": hesaCSV(table11Header,
			`1,A,2015/16,Total,Smith,Pay,Basic salary,190`,
			`1,A,2016/17,Total,Smith,Pay,Performance related pay and other bonuses,20`),
		"notes/readme.txt": "not a table",
	})

	workDir := filepath.Join(t.TempDir(), "work")
	report := &domain.TableReport{TableID: 11}
	table, err := newTestLoader(workDir, false).Load(context.Background(), 11, src, report)
	require.NoError(t, err)

	assert.Equal(t, domain.SourceZip, table.Kind)
	assert.Equal(t, "table-11.zip", table.Source)
	require.Len(t, table.Rows, 2)
	// member name order: 2016 before 2017
	assert.Equal(t, "Performance related pay and other bonuses", table.Rows[0][6])
	assert.Equal(t, "Basic salary", table.Rows[1][6])
	assert.Equal(t, 3, report.RowsRead)
	assert.Equal(t, 1, report.Dropped[domain.DropExcludedYear])

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "extraction dir should be removed")
}

func TestLoad_ArchiveKeepExtracted(t *testing.T) {
	dir := t.TempDir()
	src := writeZip(t, dir, "table-11.zip", map[string]string{
		"a.csv": hesaCSV(table11Header, `1,A,2016/17,Total,Smith,Pay,Basic salary,200`),
	})

	workDir := t.TempDir()
	_, err := newTestLoader(workDir, true).Load(context.Background(), 11, src, &domain.TableReport{TableID: 11})
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(workDir, "table-11-*", "a.csv"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestLoad_ArchiveHeaderDrift(t *testing.T) {
	drifted := "UKPRN,HE provider,Academic year,Head of provider marker,Category,Value"
	src := writeZip(t, t.TempDir(), "table-11.zip", map[string]string{
		"a-2016.csv": hesaCSV(table11Header, `1,A,2016/17,Total,Smith,Pay,Basic salary,200`),
		"b-2017.csv": hesaCSV(drifted, `1,A,2017/18,Total,Basic salary,210`),
		"c-2018.csv": hesaCSV(drifted, `1,A,2018/19,Total,Basic salary,220`),
	})

	workDir := t.TempDir()
	report := &domain.TableReport{TableID: 11}
	table, err := newTestLoader(workDir, false).Load(context.Background(), 11, src, report)
	require.NoError(t, err)

	assert.Equal(t, "table-11.zip", table.Source)
	assert.Empty(t, table.Rows)
	require.Len(t, table.Parts(), 2)
	assert.Equal(t, 3, table.RowCount())
	assert.Equal(t, 3, report.RowsRead)

	first, second := table.Parts()[0], table.Parts()[1]
	assert.Equal(t, "remuneration type", first.Columns[5])
	assert.Len(t, first.Rows, 1)
	assert.Equal(t, []string{"ukprn", "he provider", "academic year", "head of provider marker", "category", "value"}, second.Columns)
	require.Len(t, second.Rows, 2)
	assert.Equal(t, "2017/18", second.Rows[0][2])
	assert.Equal(t, "2018/19", second.Rows[1][2])
	for _, part := range table.Parts() {
		assert.Equal(t, domain.SourceZip, part.Kind)
		assert.Equal(t, "table-11.zip", part.Source)
	}

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoad_ArchiveErrors(t *testing.T) {
	t.Run("no csv members", func(t *testing.T) {
		src := writeZip(t, t.TempDir(), "table-11.zip", map[string]string{"readme.txt": "x"})
		_, err := newTestLoader(t.TempDir(), false).Load(context.Background(), 11, src, &domain.TableReport{TableID: 11})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
	})

	t.Run("not a zip", func(t *testing.T) {
		src := writeFile(t, t.TempDir(), "table-11.zip", "plain text")
		_, err := newTestLoader(t.TempDir(), false).Load(context.Background(), 11, src, &domain.TableReport{TableID: 11})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
	})

	t.Run("cancelled context", func(t *testing.T) {
		src := writeZip(t, t.TempDir(), "table-11.zip", map[string]string{
			"a.csv": hesaCSV(table11Header, `1,A,2016/17,Total,Smith,Pay,Basic salary,200`),
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestLoader(t.TempDir(), false).Load(ctx, 11, src, &domain.TableReport{TableID: 11})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestExtractArchive_FlattensMemberPaths(t *testing.T) {
	dir := t.TempDir()
	src := writeZip(t, dir, "evil.zip", map[string]string{
		"../../escape.csv":  "a",
		"nested/deep/b.CSV": "b",
	})

	dest := t.TempDir()
	paths, err := extractArchive(src.Path, dest)
	require.NoError(t, err)

	require.Len(t, paths, 2)
	for _, p := range paths {
		assert.Equal(t, dest, filepath.Dir(p))
	}
	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractArchive_DuplicateBaseNames(t *testing.T) {
	src := writeZip(t, t.TempDir(), "dup.zip", map[string]string{
		"2016/data.csv": "a",
		"2017/data.csv": "b",
	})
	_, err := extractArchive(src.Path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both extract to data.csv")
}

func TestLoad_Workbook(t *testing.T) {
	path := testutil.WriteWorkbook(t, t.TempDir(), "table-12.xlsx", [][]string{
		{"UKPRN", "HE provider", "Academic year", "Staff marker", "Activity", "Category", "Value"},
		{"1", "A", "2019/20", "All", "Total", "Total salaries and wages", "300"},
		{"", "Total", "2019/20", "All", "Total", "Total salaries and wages", "9999"},
	})

	report := &domain.TableReport{TableID: 12}
	src := files.FileInfo{Path: path, Name: "table-12.xlsx", Kind: domain.SourceAuto}
	table, err := newTestLoader("", false).Load(context.Background(), 12, src, report)
	require.NoError(t, err)

	assert.Equal(t, domain.SourceXLSX, table.Kind)
	assert.Equal(t, []string{"ukprn", "he provider", "academic year", "staff marker", "activity", "category", "value"}, table.Columns)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "300", table.Rows[0][6])
	assert.Equal(t, 1, report.Dropped[domain.DropSectorTotal])
}

func TestRawTable_DropColumns(t *testing.T) {
	table := &RawTable{
		TableID: 1,
		Columns: []string{"a", "b", "c"},
		Rows:    [][]string{{"1", "2", "3"}, {"4", "5", "6"}},
	}
	out := table.DropColumns(1)
	assert.Equal(t, []string{"a", "c"}, out.Columns)
	assert.Equal(t, [][]string{{"1", "3"}, {"4", "6"}}, out.Rows)
	// original untouched
	assert.Equal(t, []string{"a", "b", "c"}, table.Columns)
	assert.Equal(t, -1, out.Index("b"))
}
