package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/mtwest2718/ukhe-finances/internal/errors"
	"github.com/mtwest2718/ukhe-finances/pkg/contracts/domain"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	Kind    domain.SourceKind
}

// Discovery locates raw table sources under an input directory
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// KindOf infers the source kind from a file extension.
// Unknown extensions return SourceAuto.
func KindOf(name string) domain.SourceKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return domain.SourceCSV
	case ".zip":
		return domain.SourceZip
	case ".xlsx":
		return domain.SourceXLSX
	default:
		return domain.SourceAuto
	}
}

// FindTable returns the first candidate name that exists as a regular file.
// Candidate names are resolved against the base path unless absolute.
func (d *Discovery) FindTable(tableID int, candidates []string) (FileInfo, error) {
	for _, name := range candidates {
		fullPath := name
		if !filepath.IsAbs(name) {
			fullPath = filepath.Join(d.basePath, name)
		}

		info, err := os.Stat(fullPath)
		if err != nil || info.IsDir() {
			continue
		}

		return FileInfo{
			Path:    fullPath,
			Name:    filepath.Base(fullPath),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Kind:    KindOf(fullPath),
		}, nil
	}

	return FileInfo{}, apperrors.NewNotFoundError(
		fmt.Sprintf("source for table %d (tried %s)", tableID, strings.Join(candidates, ", "))).
		WithContext("table_id", tableID)
}

// FindTableFiles lists every file named table-<id>.<ext> with a supported
// extension, sorted by table id then name.
func (d *Discovery) FindTableFiles() ([]FileInfo, error) {
	entries, err := os.ReadDir(d.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", d.basePath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if _, ok := ParseTableID(name); !ok || KindOf(name) == domain.SourceAuto {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, FileInfo{
			Path:    filepath.Join(d.basePath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Kind:    KindOf(name),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		a, _ := ParseTableID(files[i].Name)
		b, _ := ParseTableID(files[j].Name)
		if a != b {
			return a < b
		}
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// ParseTableID extracts the id from a table-<id>.<ext> file name
func ParseTableID(name string) (int, bool) {
	base := strings.TrimSuffix(strings.ToLower(name), strings.ToLower(filepath.Ext(name)))
	if !strings.HasPrefix(base, "table-") {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimPrefix(base, "table-"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
