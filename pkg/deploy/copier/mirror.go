package copier

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tvandinther/themedist/pkg/deploy"
)

// Mirror makes dst an exact copy of src. Everything directly under dst is
// removed before copying, except the metadata directory, so repository
// state survives.
type Mirror struct{}

func (_ *Mirror) Mirror(src, dst string, opts deploy.CopyOptions, sendMsg func(string)) (*deploy.CopyResult, error) {
	metadataDir := opts.MetadataDir

	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", src)
	}

	if err := os.MkdirAll(dst, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to make target directory: %w", err)
	}

	result := &deploy.CopyResult{}

	slog.Debug("cleaning target directory", "dst", dst, "keep", metadataDir)
	sendMsg(fmt.Sprintf("cleaning %s", dst))
	removed, err := clean(dst, metadataDir)
	result.EntriesRemoved = removed
	if err != nil {
		return result, err
	}

	slog.Debug("copying files", "src", src, "dst", dst)
	sendMsg(fmt.Sprintf("copying %s to %s", src, dst))
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if metadataDir != "" && d.Name() == metadataDir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if err := os.Symlink(link, target); err != nil {
				return err
			}
		case d.Type().IsRegular():
			if err := copyFile(path, target); err != nil {
				return err
			}
		default:
			slog.Debug("skipping irregular file", "path", path, "type", d.Type().String())
			return nil
		}

		result.FilesCopied++
		if opts.OnFile != nil {
			opts.OnFile(rel)
		}

		return nil
	})
	if err != nil {
		return result, fmt.Errorf("failed to copy files: %w", err)
	}

	sendMsg(fmt.Sprintf("copied %d files", result.FilesCopied))

	return result, nil
}

func clean(dir, keep string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read target directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if keep != "" && entry.Name() == keep {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", path, err)
		}
		removed++
	}

	return removed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
