package pico

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"google.golang.org/api/iterator"
)

// exportSuffixes are the file endings accepted when a directory or a
// gs:// prefix is given in place of a single export.
var exportSuffixes = []string{".csv", ".tsv", ".txt"}

func isExportName(name string) bool {
	name = strings.ToLower(name)
	if strings.HasSuffix(name, ".xls") {
		return true
	}
	for _, compressed := range []string{".gz", ".bz2", ".xz", ".zip"} {
		name = strings.TrimSuffix(name, compressed)
	}
	for _, suffix := range exportSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}

	return false
}

// ListInputs expands each path into the export files it refers to. A gs://
// path ending in "/" is listed as a prefix; a local directory is listed
// non-recursively. Any other path is returned unchanged.
func ListInputs(ctx context.Context, paths []string, client *storage.Client) ([]string, error) {
	out := make([]string, 0, len(paths))

	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}

		if strings.HasPrefix(path, "gs://") {
			if !strings.HasSuffix(path, "/") || client == nil {
				out = append(out, path)
				continue
			}
			listed, err := ListFromGoogleStorage(ctx, path, client)
			if err != nil {
				return nil, err
			}
			out = append(out, listed...)
			continue
		}

		local, err := ExpandHome(path)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(local)
		if err != nil {
			return nil, pfx.Err(err)
		}
		if !info.IsDir() {
			out = append(out, local)
			continue
		}

		entries, err := os.ReadDir(local)
		if err != nil {
			return nil, pfx.Err(err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !isExportName(entry.Name()) {
				continue
			}
			out = append(out, filepath.Join(local, entry.Name()))
		}
	}

	return out, nil
}

// ListFromGoogleStorage lists the exports stored under a gs:// prefix.
func ListFromGoogleStorage(ctx context.Context, path string, client *storage.Client) ([]string, error) {
	bucketName, prefix, err := SplitGSPath(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]string, 0)
	it := client.Bucket(bucketName).Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, pfx.Err(err)
		}
		if attrs.Name == "" || !isExportName(attrs.Name) {
			// Synthetic "directory" entries carry only a Prefix
			continue
		}
		out = append(out, "gs://"+bucketName+"/"+attrs.Name)
	}
	sort.Strings(out)

	return out, nil
}
