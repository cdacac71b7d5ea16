/*
Package filesystem wraps the few filesystem operations the upload path needs
with retry logic for network-mounted media directories.

Stale NFS handles (ESTALE) and interrupted calls are retried with exponential
backoff; every other error is returned immediately.

	cfg := filesystem.DefaultRetryConfig() // 3 retries, 50ms doubling to 500ms
	if err := filesystem.MkdirAllWithRetry(dir, 0o755, cfg); err != nil {
	    return err
	}
	n, err := filesystem.WriteFileAtomic(filepath.Join(dir, name), body, cfg)

WriteFileAtomic writes to a temporary file next to the target and renames it,
so the file server never hands out a half-written track.
*/
package filesystem
