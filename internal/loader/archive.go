package loader

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// extractArchive writes every .csv member of a zip file into dest and returns
// the extracted paths in member-name order. Member paths are flattened to
// their base name so nothing can be written outside dest.
func extractArchive(src, dest string) ([]string, error) {
	// Insecure member paths are flattened by memberName
	r, err := zip.OpenReader(src)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	members := make([]*zip.File, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(f.Name), ".csv") {
			continue
		}
		members = append(members, f)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })

	seen := make(map[string]string, len(members))
	paths := make([]string, 0, len(members))
	for _, f := range members {
		name, err := memberName(f.Name)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("archive members %q and %q both extract to %s", prev, f.Name, name)
		}
		seen[name] = f.Name

		path := filepath.Join(dest, name)
		if err := extractMember(f, path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// memberName reduces a member path to a safe file name
func memberName(raw string) (string, error) {
	name := filepath.Base(filepath.Clean(strings.ReplaceAll(raw, `\`, "/")))
	if name == "." || name == ".." || name == string(filepath.Separator) || name == "" {
		return "", fmt.Errorf("archive member %q has no usable file name", raw)
	}
	return name, nil
}

func extractMember(f *zip.File, path string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open member %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract member %s: %w", f.Name, err)
	}
	return out.Close()
}
