package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// copyFile copies src to a fresh destPath in chunks, checking for
// cancellation before every read. A cancelled copy removes the partial
// destination file so nothing half-written survives; a completed copy is
// synced before the path is reported as created.
func (t *Transfers) copyFile(ctx context.Context, src, destPath string) *OpError {
	in, err := os.Open(src)
	if err != nil {
		if os.IsPermission(err) {
			return permissionDenied(src, err.Error())
		}
		if os.IsNotExist(err) {
			return sourceNotFound(src)
		}
		return ioError(src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		if os.IsPermission(err) {
			return permissionDenied(destPath, err.Error())
		}
		return ioError(destPath, err)
	}

	buf := make([]byte, t.chunkSize)
	for {
		if ctx.Err() != nil {
			out.Close()
			if rmErr := os.Remove(destPath); rmErr != nil {
				t.log.Warn().Str("path", destPath).Err(rmErr).Msg("partial file removal failed")
			}
			return cancelled("copy cancelled")
		}

		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				out.Close()
				os.Remove(destPath)
				return ioError(destPath, werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			out.Close()
			os.Remove(destPath)
			return ioError(src, rerr)
		}
	}

	if err := out.Sync(); err != nil {
		out.Close()
		return ioError(destPath, err)
	}
	if err := out.Close(); err != nil {
		return ioError(destPath, err)
	}

	// Best-effort metadata: carry the source's permission bits and mtime
	// over. A failure never fails the copy, the bytes already landed.
	if fi, serr := in.Stat(); serr == nil {
		if cerr := os.Chmod(destPath, fi.Mode().Perm()); cerr != nil {
			t.log.Debug().Str("path", destPath).Err(cerr).Msg("mode preservation failed")
		}
		if cerr := os.Chtimes(destPath, time.Now(), fi.ModTime()); cerr != nil {
			t.log.Debug().Str("path", destPath).Err(cerr).Msg("mtime preservation failed")
		}
	}
	return nil
}

// overwriteFile replaces an existing destination file without a window
// where the destination holds a partial copy: the new content lands in a
// temporary sibling first, the old file is renamed aside, the temporary
// is renamed into place, and only then is the old file deleted. A failed
// swap restores the original.
func (t *Transfers) overwriteFile(ctx context.Context, src, destPath string) *OpError {
	tmpPath := fmt.Sprintf("%s.tmp-%d", destPath, os.Getpid())
	if err := t.copyFile(ctx, src, tmpPath); err != nil {
		return err
	}

	backupPath := tmpPath + ".bak"
	if err := os.Rename(destPath, backupPath); err != nil {
		os.Remove(tmpPath)
		return ioError(destPath, err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		if restoreErr := os.Rename(backupPath, destPath); restoreErr != nil {
			t.log.Error().Str("path", destPath).Err(restoreErr).Msg("overwrite restore failed")
		}
		os.Remove(tmpPath)
		return ioError(destPath, err)
	}
	if err := os.Remove(backupPath); err != nil {
		t.log.Warn().Str("path", backupPath).Err(err).Msg("overwrite backup removal failed")
	}
	return nil
}
