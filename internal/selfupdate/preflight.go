// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/disk"
)

// spaceFactor covers the archive, its extracted contents, and the staged
// copy of the binary.
const spaceFactor = 3

//nolint:gochecknoglobals // Test seam for disk.UsageWithContext.
var diskUsage = disk.UsageWithContext

// checkFreeSpace fails with ErrInsufficientSpace when dir cannot hold an
// update of assetSize bytes. Unknown sizes and unreadable filesystems are
// not treated as errors; the download itself will fail if space runs out.
func checkFreeSpace(ctx context.Context, dir string, assetSize int64) error {
	if assetSize <= 0 {
		return nil
	}
	usage, err := diskUsage(ctx, dir)
	if err != nil || usage == nil {
		return nil //nolint:nilerr // Preflight is advisory when usage is unavailable.
	}
	need := uint64(assetSize) * spaceFactor
	if usage.Free < need {
		return fmt.Errorf("%w: %s has %d bytes free, need %d", ErrInsufficientSpace, dir, usage.Free, need)
	}
	return nil
}
