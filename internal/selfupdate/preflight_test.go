// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v4/disk"
)

func TestCheckFreeSpace(t *testing.T) {
	// Not parallel: overrides the diskUsage seam.

	saved := diskUsage
	t.Cleanup(func() { diskUsage = saved })

	tests := []struct {
		name    string
		free    uint64
		usageEr error
		size    int64
		wantErr bool
	}{
		{"enough space", 1 << 30, nil, 10 << 20, false},
		{"exactly three times", 300, nil, 100, false},
		{"too little space", 299, nil, 100, true},
		{"unknown size skips the check", 0, nil, 0, false},
		{"usage unavailable", 0, errors.New("statfs failed"), 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			free, usageErr := tt.free, tt.usageEr
			diskUsage = func(context.Context, string) (*disk.UsageStat, error) {
				if usageErr != nil {
					return nil, usageErr
				}
				return &disk.UsageStat{Free: free}, nil
			}

			err := checkFreeSpace(context.Background(), t.TempDir(), tt.size)
			if tt.wantErr != errors.Is(err, ErrInsufficientSpace) {
				t.Errorf("checkFreeSpace() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
